package selection

import "github.com/hayeah/treetxt/internal/tree"

// Op enumerates the abstract input commands.
type Op int

const (
	OpMoveCursor Op = iota
	OpToggleExpand
	OpToggleSelect
	OpSelectAllVisible
	OpDeselectAll
	OpToggleHidden
	OpConfirm
	OpQuit
)

var opNames = [...]string{
	OpMoveCursor:       "MoveCursor",
	OpToggleExpand:     "ToggleExpand",
	OpToggleSelect:     "ToggleSelect",
	OpSelectAllVisible: "SelectAllVisible",
	OpDeselectAll:      "DeselectAll",
	OpToggleHidden:     "ToggleHidden",
	OpConfirm:          "Confirm",
	OpQuit:             "Quit",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "Op(?)"
}

// Command is one input event. Delta is used by MoveCursor, Node by
// ToggleExpand and ToggleSelect.
type Command struct {
	Op    Op
	Delta int
	Node  tree.NodeID
}

func MoveCursor(delta int) Command { return Command{Op: OpMoveCursor, Delta: delta} }
func ToggleExpand(id tree.NodeID) Command { return Command{Op: OpToggleExpand, Node: id} }
func ToggleSelect(id tree.NodeID) Command { return Command{Op: OpToggleSelect, Node: id} }
func SelectAllVisible() Command { return Command{Op: OpSelectAllVisible} }
func DeselectAll() Command { return Command{Op: OpDeselectAll} }
func ToggleHidden() Command { return Command{Op: OpToggleHidden} }
func Confirm() Command { return Command{Op: OpConfirm} }
func Quit() Command { return Command{Op: OpQuit} }
