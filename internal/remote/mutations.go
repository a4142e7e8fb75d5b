package remote

import "context"

type createFolderParams struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId,omitempty"`
}

// CreateFolder calls folders.create(name, parent_id?) (spec §4.2). A
// conflict (typically a pre-existing sibling with the same name) returns
// an error wrapping ErrConflict; the caller (push phase) performs the
// adoption-fallback scan described in spec §4.6.
func (c *Client) CreateFolder(ctx context.Context, name string, parentID *string) (FolderEntry, error) {
	var entry FolderEntry

	if err := c.call(ctx, "folders.create", createFolderParams{Name: name, ParentID: parentID}, &entry); err != nil {
		return FolderEntry{}, err
	}

	return entry, nil
}

type idParams struct {
	ID string `json:"id"`
}

// SoftDeleteFile calls files.softDelete(id) (spec §4.2).
func (c *Client) SoftDeleteFile(ctx context.Context, id string) error {
	return c.call(ctx, "files.softDelete", idParams{ID: id}, nil)
}

// PermanentDeleteFile calls files.permanentDelete(id). Exposed for
// administrative callers; never invoked by the reconciliation loop (spec §9
// open question).
func (c *Client) PermanentDeleteFile(ctx context.Context, id string) error {
	return c.call(ctx, "files.permanentDelete", idParams{ID: id}, nil)
}

// RestoreFile calls files.restore(id). Exposed for administrative callers;
// never invoked by the reconciliation loop (spec §9 open question).
func (c *Client) RestoreFile(ctx context.Context, id string) error {
	return c.call(ctx, "files.restore", idParams{ID: id}, nil)
}

// DeleteFolder calls folders.delete(id) (spec §4.2).
func (c *Client) DeleteFolder(ctx context.Context, id string) error {
	return c.call(ctx, "folders.delete", idParams{ID: id}, nil)
}

type renameParams struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenameFile calls files.rename(id, name). Exposed for administrative
// callers; never invoked by the reconciliation loop (spec §9 open
// question).
func (c *Client) RenameFile(ctx context.Context, id, name string) error {
	return c.call(ctx, "files.rename", renameParams{ID: id, Name: name}, nil)
}

type moveParams struct {
	ID           string  `json:"id"`
	NewParentID  *string `json:"newParentId,omitempty"`
}

// MoveFile calls files.move(id, new_parent_id?). Exposed for
// administrative callers; never invoked by the reconciliation loop (spec §9
// open question).
func (c *Client) MoveFile(ctx context.Context, id string, newParentID *string) error {
	return c.call(ctx, "files.move", moveParams{ID: id, NewParentID: newParentID}, nil)
}
