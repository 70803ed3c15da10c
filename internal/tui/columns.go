package tui

type columnID string

const (
	colName     columnID = "name"
	colState    columnID = "state"
	colLastTask columnID = "last_task"
	colAge      columnID = "age"
	colTasks    columnID = "tasks"
	colSuccess  columnID = "success"
)

type columnDef struct {
	ID       columnID
	Header   string
	Width    int
	Flexible bool
}

const (
	columnGap         = 2
	minFlexibleWidth  = 10
	defaultTableWidth = 100
)

var columns = []columnDef{
	{ID: colName, Header: "AGENT", Width: 18},
	{ID: colState, Header: "STATE", Width: 8},
	{ID: colLastTask, Header: "LAST TASK", Width: 30, Flexible: true},
	{ID: colAge, Header: "AGE", Width: 6},
	{ID: colTasks, Header: "TASKS", Width: 7},
	{ID: colSuccess, Header: "SUCCESS", Width: 7},
}

// layoutColumns returns the column set sized for the terminal width.
// The flexible column absorbs the remaining space but never shrinks
// below minFlexibleWidth.
func layoutColumns(width int) []columnDef {
	if width <= 0 {
		width = defaultTableWidth
	}

	fixed := columnGap * (len(columns) - 1)
	for _, c := range columns {
		if !c.Flexible {
			fixed += c.Width
		}
	}

	out := make([]columnDef, len(columns))
	copy(out, columns)
	for i := range out {
		if out[i].Flexible {
			out[i].Width = max(width-fixed, minFlexibleWidth)
		}
	}
	return out
}
