package mapxsd

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Document is one named document to validate in a batch
type Document struct {
	Name string
	Text string
}

// Result groups the diagnostics of one document
type Result struct {
	Name        string       `json:"name"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Valid reports whether the document produced no diagnostics
func (r Result) Valid() bool {
	return len(r.Diagnostics) == 0
}

// ValidateBatch validates documents in parallel against one shared schema.
// At most limit documents are validated at once (limit <= 0 means no limit).
// Results are returned in input order. Once ctx is done no further documents
// are started and ctx's error is returned alongside the results gathered so far.
func (v *Validator) ValidateBatch(ctx context.Context, docs []Document, limit int) ([]Result, error) {
	results := make([]Result, len(docs))
	for i, doc := range docs {
		results[i].Name = doc.Name
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].Diagnostics = v.Validate(doc.Text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
