package mdpost

import (
	"fmt"
	"sort"
	"strings"
)

// Collection is an immutable set of processed posts keyed by route key.
// Failed documents are excluded from Lookup and Feed; their errors stay
// available through Failure.
type Collection struct {
	posts    map[string]*Post // by route key
	failures map[string]error // by source path
}

// NewCollection assembles posts processed elsewhere, applying the same
// duplicate route key rule as Ingest.
func NewCollection(posts ...*Post) *Collection {
	results := make([]ingestResult, len(posts))
	for i, p := range posts {
		results[i] = ingestResult{path: p.Document.Path, post: p}
	}
	return newCollection(results)
}

func newCollection(results []ingestResult) *Collection {
	c := &Collection{
		posts:    make(map[string]*Post),
		failures: make(map[string]error),
	}

	claims := make(map[string][]*Post)
	for _, r := range results {
		if r.err != nil {
			c.failures[r.path] = r.err
			continue
		}
		claims[r.post.Document.RouteKey] = append(claims[r.post.Document.RouteKey], r.post)
	}

	for key, posts := range claims {
		if len(posts) == 1 {
			c.posts[key] = posts[0]
			continue
		}
		paths := make([]string, len(posts))
		for i, p := range posts {
			paths[i] = p.Document.Path
		}
		sort.Strings(paths)
		for _, p := range posts {
			c.failures[p.Document.Path] = &IngestError{
				Path: p.Document.Path,
				Err:  fmt.Errorf("%w: %q claimed by %s", ErrDuplicateRouteKey, key, strings.Join(paths, ", ")),
			}
		}
	}
	return c
}

// Lookup returns the post for a route key. Leading and trailing slashes are
// ignored. Missing and failed documents both yield ErrNotFound.
func (c *Collection) Lookup(routeKey string) (*Post, error) {
	key := strings.Trim(routeKey, "/")
	if p, ok := c.posts[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// Failure returns the error that excluded the document at path, or nil.
func (c *Collection) Failure(path string) error {
	return c.failures[path]
}

// FailedPaths lists excluded source paths in lexical order.
func (c *Collection) FailedPaths() []string {
	paths := make([]string, 0, len(c.failures))
	for p := range c.failures {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of routable posts.
func (c *Collection) Len() int { return len(c.posts) }

// Posts returns every routable post, drafts included, ordered by route key.
func (c *Collection) Posts() []*Post {
	out := make([]*Post, 0, len(c.posts))
	for _, p := range c.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Document.RouteKey < out[j].Document.RouteKey
	})
	return out
}

// Feed returns published posts, newest first. Posts sharing a date are
// ordered by route key.
func (c *Collection) Feed() []*Post {
	var out []*Post
	for _, p := range c.Posts() {
		if p.Document.Published {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Document.PublishDate.After(out[j].Document.PublishDate)
	})
	return out
}
