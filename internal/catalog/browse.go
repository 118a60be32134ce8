package catalog

import "context"

type Listing struct {
	Products []Product `json:"products"`
	Meta     PageMeta  `json:"meta"`
}

// Browse counts the matching products first so the requested page can be
// clamped before it is fetched.
func Browse(ctx context.Context, r Reader, q Query) (Listing, error) {
	q = q.normalized()

	total, err := r.Count(ctx, q)
	if err != nil {
		return Listing{}, err
	}

	meta := NewPageMeta(q.Page, total, q.PerPage)
	if total == 0 {
		return Listing{Products: []Product{}, Meta: meta}, nil
	}

	q.Page = meta.CurrentPage
	products, err := r.List(ctx, q)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Products: products, Meta: meta}, nil
}
