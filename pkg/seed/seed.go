// Package seed imports spaces and content from a YAML or JSON fixture.
//
// A fixture has a top-level "spaces" list and an optional "content" list.
// Each space may nest its items under posts, documents, events, polls or
// content; nested items inherit the space id. Legacy camelCase field names
// are accepted everywhere.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"fusion-portal-backend/pkg/database"
	"fusion-portal-backend/pkg/feed"
	"fusion-portal-backend/pkg/models"
	"fusion-portal-backend/pkg/utils"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Fixture is the decoded seed file
type Fixture struct {
	Spaces  []map[string]interface{} `yaml:"spaces"`
	Content []map[string]interface{} `yaml:"content"`
}

// nestedKeys are the per-space lists and the variant each implies
var nestedKeys = map[string]models.ContentType{
	"posts":     models.ContentPost,
	"blogs":     models.ContentPost,
	"documents": models.ContentDocument,
	"events":    models.ContentEvent,
	"polls":     models.ContentPoll,
	"content":   "",
}

// Load decodes a fixture; JSON input works since JSON is valid YAML
func Load(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("fixture is empty")
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// LoadFile 读取 fixture 文件
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Repository is what the importer writes to and verifies against
type Repository interface {
	UpsertSpace(ctx context.Context, space *models.Space) error
	UpsertContent(ctx context.Context, c *models.Content) error
	FetchContentBySpace(ctx context.Context, spaceID string, variant models.ContentType) ([]models.Content, error)
}

// SpaceSummary 导入后按空间核对的数量
type SpaceSummary struct {
	ID     string
	Name   string
	Counts feed.Counts
}

// Report 导入结果
type Report struct {
	Spaces   int
	Content  map[models.ContentType]int
	Skipped  []string
	PerSpace []SpaceSummary
}

// Importer 将 fixture 写入仓库
type Importer struct {
	repo Repository
	log  logrus.FieldLogger
}

// NewImporter 创建导入器
func NewImporter(repo Repository, log logrus.FieldLogger) *Importer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Importer{repo: repo, log: log}
}

// Import upserts every space and item, then re-reads each space through the
// feed engine and reports its per-type counts.
func (im *Importer) Import(ctx context.Context, fx *Fixture) (*Report, error) {
	report := &Report{Content: map[models.ContentType]int{}}
	var spaces []models.Space

	for i, raw := range fx.Spaces {
		space := database.NormalizeSpace(raw)
		if strings.TrimSpace(space.Name) == "" {
			space.Name = space.DisplayName
		}
		if space.Name == "" {
			return nil, fmt.Errorf("space #%d has no name", i+1)
		}
		if space.ID == "" {
			space.ID = utils.NewSpaceID()
		} else if err := feed.ValidateSpaceID(space.ID); err != nil {
			return nil, fmt.Errorf("space #%d: %w", i+1, err)
		}
		if err := im.repo.UpsertSpace(ctx, &space); err != nil {
			return nil, fmt.Errorf("upsert space %s: %w", space.ID, err)
		}
		report.Spaces++
		spaces = append(spaces, space)
		im.log.WithFields(logrus.Fields{"space_id": space.ID, "name": space.Name}).Info("Upserted space")

		for key, variant := range nestedKeys {
			for _, item := range asItems(raw[key]) {
				if err := im.importItem(ctx, item, variant, space.ID, report); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, item := range fx.Content {
		if err := im.importItem(ctx, item, "", "", report); err != nil {
			return nil, err
		}
	}

	// 核对：通过聚合引擎重新读取每个空间
	engine := feed.New(im.repo, feed.WithLogger(im.log))
	for _, space := range spaces {
		counts, err := engine.GetCounts(ctx, space.ID)
		if err != nil {
			return nil, fmt.Errorf("verify space %s: %w", space.ID, err)
		}
		report.PerSpace = append(report.PerSpace, SpaceSummary{ID: space.ID, Name: space.Name, Counts: counts})
	}
	return report, nil
}

func (im *Importer) importItem(ctx context.Context, raw map[string]interface{}, variant models.ContentType, spaceID string, report *Report) error {
	c := database.NormalizeContent(raw, variant)
	if c.ContentType == "" {
		c.ContentType = variant
	}
	if !c.ContentType.IsVariant() {
		label := fmt.Sprintf("%s (%s)", c.ID, c.ContentType)
		report.Skipped = append(report.Skipped, label)
		im.log.WithField("item", label).Warn("Skipping item with unsupported content type")
		return nil
	}
	if c.Unassigned() {
		c.SpaceID = spaceID
	}
	if c.ID == "" {
		c.ID = utils.NewContentID(string(c.ContentType))
	}
	if err := im.repo.UpsertContent(ctx, &c); err != nil {
		return fmt.Errorf("upsert %s %s: %w", c.ContentType, c.ID, err)
	}
	report.Content[c.ContentType]++
	return nil
}

func asItems(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, x := range list {
		if m, ok := x.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
