package models

// Stack is one inventory record of film stock
type Stack struct {
	ID     int64  `db:"id" json:"id"`
	Micron int    `db:"micron" json:"micron"`
	Meter  int    `db:"meter" json:"meter"`
	Size   string `db:"size" json:"size"`
	Color  string `db:"color" json:"color"`
	Stock  int    `db:"stock" json:"stock"`
}
