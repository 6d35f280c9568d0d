package dto

// UpdateCellRequest writes one spreadsheet cell. Row is 1-based, column is
// the 0-based column index.
type UpdateCellRequest struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Value  string `json:"value"`
}

// AppendRowRequest appends one spreadsheet row.
type AppendRowRequest struct {
	Values []string `json:"values"`
}
