package auditlog

import "context"

// Metadata identifies the run and workflow state an action belongs to.
type Metadata struct {
	RunID string
	Role  string
	State string
}

type metadataKey struct{}

// WithMetadata attaches audit metadata to a context, keeping any fields
// already present that meta leaves empty.
func WithMetadata(ctx context.Context, meta Metadata) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	existing, _ := ctx.Value(metadataKey{}).(Metadata)
	merged := Metadata{
		RunID: pick(meta.RunID, existing.RunID),
		Role:  pick(meta.Role, existing.Role),
		State: pick(meta.State, existing.State),
	}
	return context.WithValue(ctx, metadataKey{}, merged)
}

// MetadataFromContext returns audit metadata stored in the context.
func MetadataFromContext(ctx context.Context) Metadata {
	if ctx == nil {
		return Metadata{}
	}
	meta, _ := ctx.Value(metadataKey{}).(Metadata)
	return meta
}

func pick(next, fallback string) string {
	if next != "" {
		return next
	}
	return fallback
}
