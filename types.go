package smartsheet

import "time"

// PageOptions controls paging on list endpoints.
type PageOptions struct {
	Page       int  // 1-based page number (default: 1)
	PageSize   int  // items per page (default: 100)
	IncludeAll bool // return every item in one response, ignoring Page/PageSize
}

func (o *PageOptions) query() *QueryBuilder {
	var q QueryBuilder
	if o == nil {
		return &q
	}
	if o.IncludeAll {
		q.AddBool("includeAll", true)
		return &q
	}
	if o.Page > 0 {
		q.AddInt("page", o.Page)
	}
	if o.PageSize > 0 {
		q.AddInt("pageSize", o.PageSize)
	}
	return &q
}

// IndexResult is one page of a list endpoint.
type IndexResult[T any] struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
	Data       []T `json:"data"`
}

// Result wraps the response of a mutating call.
type Result[T any] struct {
	Message    string `json:"message"`
	ResultCode int    `json:"resultCode"`
	Result     T      `json:"result,omitempty"`
}

// User is an organization member.
type User struct {
	ID                   int64  `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name,omitempty"`
	FirstName            string `json:"firstName,omitempty"`
	LastName             string `json:"lastName,omitempty"`
	Admin                bool   `json:"admin"`
	LicensedSheetCreator bool   `json:"licensedSheetCreator"`
	Status               string `json:"status,omitempty"`
}

// Account identifies the account a user belongs to.
type Account struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserProfile is the authenticated user as returned by /users/me.
type UserProfile struct {
	User
	Locale   string   `json:"locale,omitempty"`
	TimeZone string   `json:"timeZone,omitempty"`
	Account  *Account `json:"account,omitempty"`
}

// Sheet is a spreadsheet. List endpoints return only the summary fields.
type Sheet struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	AccessLevel   string    `json:"accessLevel,omitempty"`
	Permalink     string    `json:"permalink,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	ModifiedAt    time.Time `json:"modifiedAt,omitempty"`
	TotalRowCount int       `json:"totalRowCount,omitempty"`
	Columns       []Column  `json:"columns,omitempty"`
	Rows          []Row     `json:"rows,omitempty"`
}

// Column describes one sheet column.
type Column struct {
	ID      int64  `json:"id"`
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	Primary bool   `json:"primary,omitempty"`
}

// Row is one sheet row.
type Row struct {
	ID        int64  `json:"id"`
	RowNumber int    `json:"rowNumber"`
	Cells     []Cell `json:"cells"`
}

// Cell is the value of one column in a row.
type Cell struct {
	ColumnID     int64  `json:"columnId"`
	Value        any    `json:"value,omitempty"`
	DisplayValue string `json:"displayValue,omitempty"`
}

// Cell returns the cell for columnID.
func (r *Row) Cell(columnID int64) (*Cell, bool) {
	for i := range r.Cells {
		if r.Cells[i].ColumnID == columnID {
			return &r.Cells[i], true
		}
	}
	return nil, false
}

// String returns the cell's display value, falling back to its raw value.
func (c *Cell) String() string {
	if c.DisplayValue != "" {
		return c.DisplayValue
	}
	return stringValue(c.Value)
}

// Float returns the cell's value as a number.
func (c *Cell) Float() (float64, bool) {
	return floatValue(c.Value)
}

// ColumnByTitle returns the first column with the given title.
func (s *Sheet) ColumnByTitle(title string) (*Column, bool) {
	for i := range s.Columns {
		if s.Columns[i].Title == title {
			return &s.Columns[i], true
		}
	}
	return nil, false
}
