package host

import (
	"context"
	"fmt"

	"docmill/internal/handles"
)

// CloseAllDocuments closes every document in the host's open-document
// collection, tracking each handle in scope. Iteration walks from the last
// index toward the first so closing an element never invalidates the indices
// still to visit. The collection handle itself is tracked before its count
// is known — an empty collection is still a live native object.
func CloseAllDocuments(ctx context.Context, scope *handles.Scope, app Application) error {
	coll, err := app.Documents(ctx)
	if err != nil {
		return fmt.Errorf("open documents collection: %w", err)
	}
	handles.Track(scope, coll, handles.KindCollection, "documents")

	count, err := coll.Count(ctx)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	for i := count; i >= 1; i-- {
		doc, err := coll.Item(ctx, i)
		if err != nil {
			return fmt.Errorf("document at index %d: %w", i, err)
		}
		handles.Track(scope, doc, handles.KindDocument, fmt.Sprintf("documents[%d]", i))
		if err := doc.Close(ctx); err != nil {
			return fmt.Errorf("close document at index %d: %w", i, err)
		}
	}
	return nil
}
