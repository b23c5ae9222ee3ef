package reconcile

import (
	"context"

	"github.com/pkg/errors"

	"github.com/psetup/psetup/resource"
)

// Find locates the existing resource matching the declared identity.
//
// All pages are accumulated before deciding: a duplicate on a later page
// must force ambiguity, so no decision can be made from a partial listing.
// The adapter's exact-match predicate is applied client-side to every item,
// even when the listing call filters server-side, since server-side filters
// may match more broadly than the exact identity.
//
// Returns (nil, nil) when no resource matches; zero matches is a valid
// state, not an error. Two or more matches return an AmbiguousError naming
// every conflicting resource.
func Find(ctx context.Context, a Adapter, id resource.Identity) (*Candidate, error) {
	var all []Candidate
	pageToken := ""
	for {
		items, next, err := a.List(ctx, id, pageToken)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s under %s", a.Kind(), id.Scope)
		}
		all = append(all, items...)
		if next == "" {
			break
		}
		pageToken = next
	}

	var matches []Candidate
	for _, item := range all {
		if a.Matches(item, id) {
			matches = append(matches, item)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		m := matches[0]
		return &m, nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, &AmbiguousError{Kind: a.Kind(), ID: id, Candidates: names}
	}
}
