package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/perch-labs/leadscout/internal/model"
)

// ExportSource reads a scraper export file: either a JSON array of posts, a
// JSON object wrapping the posts with container metadata, or JSONL with one
// post per line.
type ExportSource struct {
	Path     string
	Platform model.Platform
}

// exportWrapper is the container-payload shape some scraping jobs emit.
type exportWrapper struct {
	ContainerID string            `json:"container_id"`
	JobKey      string            `json:"job_key"`
	Posts       []json.RawMessage `json:"posts"`
}

// exportPost accepts the field-name variations seen across scraper exports.
// Author may be a bare string or a structured object.
type exportPost struct {
	ActivityID  string          `json:"activity_id"`
	Text        string          `json:"text"`
	PostContent string          `json:"postContent"`
	Content     string          `json:"content"`
	Description string          `json:"description"`
	PostURL     string          `json:"post_url"`
	PostURLAlt  string          `json:"postUrl"`
	URL         string          `json:"url"`
	Author      json.RawMessage `json:"author"`
	AuthorName  string          `json:"author_name"`
	ProfileName string          `json:"profileName"`
	AuthorTitle string          `json:"author_title"`
	Headline    string          `json:"headline"`
	Timestamp   string          `json:"timestamp"`
	Date        string          `json:"date"`
	Likes       int             `json:"likes"`
	LikeCount   int             `json:"likeCount"`
	Comments    int             `json:"comments"`
	Shares      int             `json:"shares"`
}

type structuredAuthor struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Fetch reads and normalizes the export file into one batch.
func (s *ExportSource) Fetch(_ context.Context) ([]Batch, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read export %s", s.Path)
	}

	batch, err := parseExport(data, s.Platform)
	if err != nil {
		return nil, err
	}
	zap.L().Info("export loaded",
		zap.String("path", s.Path),
		zap.String("platform", string(s.Platform)),
		zap.String("container_id", batch.ContainerID),
		zap.Int("posts", len(batch.Posts)),
	)
	return []Batch{batch}, nil
}

func parseExport(data []byte, platform model.Platform) (Batch, error) {
	batch := Batch{Platform: platform}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return batch, nil
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return batch, eris.Wrap(err, "source: parse export array")
		}
	case '{':
		// A single object is either a container wrapper or JSONL whose
		// first line happens to be an object; try the wrapper first.
		var w exportWrapper
		if err := json.Unmarshal(trimmed, &w); err == nil && len(w.Posts) > 0 {
			batch.ContainerID = containerKey(w)
			batch.JobKey = w.JobKey
			raws = w.Posts
			break
		}
		var err error
		raws, err = parseJSONL(trimmed)
		if err != nil {
			return batch, err
		}
	default:
		return batch, eris.New("source: unrecognized export format")
	}

	for _, raw := range raws {
		post, ok := normalizePost(raw, platform)
		if !ok {
			continue
		}
		batch.Posts = append(batch.Posts, post)
	}
	return batch, nil
}

func parseJSONL(data []byte) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, eris.New("source: invalid JSONL line in export")
		}
		raws = append(raws, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "source: scan export lines")
	}
	return raws, nil
}

func containerKey(w exportWrapper) string {
	if w.ContainerID != "" {
		return w.ContainerID
	}
	return w.JobKey
}

// normalizePost maps one export object to a RawPost. Returns ok=false for
// lines that are not post objects at all.
func normalizePost(raw json.RawMessage, platform model.Platform) (model.RawPost, bool) {
	var ep exportPost
	if err := json.Unmarshal(raw, &ep); err != nil {
		return model.RawPost{}, false
	}

	post := model.RawPost{
		Platform:  platform,
		Content:   firstNonEmpty(ep.PostContent, ep.Text, ep.Content, ep.Description),
		Permalink: firstNonEmpty(ep.PostURL, ep.PostURLAlt, ep.URL),
		RawJSON:   string(raw),
		Stats: model.PostStats{
			Likes:    maxInt(ep.Likes, ep.LikeCount),
			Comments: ep.Comments,
			Shares:   ep.Shares,
		},
	}

	post.AuthorName, post.AuthorTitle = normalizeAuthor(ep)

	post.ExternalID = ep.ActivityID
	if post.ExternalID == "" {
		post.ExternalID = model.DeriveExternalID(platform, post.Permalink)
	}

	if ts := firstNonEmpty(ep.Timestamp, ep.Date); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			post.PostedAt = t
		}
	}
	return post, true
}

// normalizeAuthor handles both author shapes: a structured object with name
// and title, or a bare string alongside separate title fields.
func normalizeAuthor(ep exportPost) (name, title string) {
	if len(ep.Author) > 0 {
		var sa structuredAuthor
		if err := json.Unmarshal(ep.Author, &sa); err == nil && sa.Name != "" {
			return sa.Name, sa.Title
		}
		var plain string
		if err := json.Unmarshal(ep.Author, &plain); err == nil && plain != "" {
			name = plain
		}
	}
	if name == "" {
		name = firstNonEmpty(ep.AuthorName, ep.ProfileName)
	}
	title = firstNonEmpty(ep.AuthorTitle, ep.Headline)
	return name, title
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
