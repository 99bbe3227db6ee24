package smartsheet

import (
	"context"
	"fmt"
)

// ListSheets returns one page of sheets the user can access.
func (c *Client) ListSheets(ctx context.Context, opts *PageOptions) (*IndexResult[Sheet], error) {
	var page IndexResult[Sheet]
	if err := c.get(ctx, "/sheets", opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetSheet returns a sheet with its columns and rows.
func (c *Client) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	if sheetID <= 0 {
		return nil, invalidArgument("sheet ID must be positive")
	}
	var sheet Sheet
	if err := c.get(ctx, idPath("/sheets", sheetID), nil, &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// DeleteSheet deletes a sheet.
func (c *Client) DeleteSheet(ctx context.Context, sheetID int64) error {
	if sheetID <= 0 {
		return invalidArgument("sheet ID must be positive")
	}
	var res Result[any]
	if err := c.delete(ctx, idPath("/sheets", sheetID), &res); err != nil {
		return err
	}
	if res.ResultCode != 0 {
		return fmt.Errorf("smartsheet: delete sheet %d: %s (result code %d)", sheetID, res.Message, res.ResultCode)
	}
	return nil
}
