package smartsheet

import "context"

// GetCurrentUser returns the profile of the user the token belongs to.
func (c *Client) GetCurrentUser(ctx context.Context) (*UserProfile, error) {
	var me UserProfile
	if err := c.get(ctx, "/users/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ListUsers returns one page of users in the organization.
func (c *Client) ListUsers(ctx context.Context, opts *PageOptions) (*IndexResult[User], error) {
	var page IndexResult[User]
	if err := c.get(ctx, "/users", opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}
