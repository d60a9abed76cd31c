package window

import (
	"bufio"
	"fmt"
	"io"
)

// Mark annotates a cell in a dump.
type Mark uint8

const (
	// MarkNone is an ordinary cell.
	MarkNone Mark = iota

	// MarkPending is the cell being edited.
	MarkPending

	// MarkUnconfirmed is a written cell not yet read back.
	MarkUnconfirmed
)

// String returns the mark name.
func (m Mark) String() string {
	switch m {
	case MarkNone:
		return "NONE"
	case MarkPending:
		return "PENDING"
	case MarkUnconfirmed:
		return "UNCONFIRMED"
	default:
		return "UNKNOWN"
	}
}

// BytesPerRow is the default dump row width.
const BytesPerRow = 16

// Formatter renders windows as hex dumps.
type Formatter struct {
	// BytesPerRow is the number of cells per row. Zero means 16.
	BytesPerRow int

	// DimZeros renders zero bytes as ".." so they stand out from data.
	DimZeros bool
}

// NewFormatter creates a Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{BytesPerRow: BytesPerRow}
}

// Dump writes win using the default formatter.
func Dump(w io.Writer, win Window, marks map[int]Mark) error {
	return NewFormatter().Dump(w, win, marks)
}

// Dump writes one line per row:
//
//	FF00D400  00 01 02*03 ?? ...  |....|
//
// Invalid cells print as "??". A '*' after a cell flags a pending or
// unconfirmed mark.
func (f *Formatter) Dump(w io.Writer, win Window, marks map[int]Mark) error {
	perRow := f.BytesPerRow
	if perRow <= 0 {
		perRow = BytesPerRow
	}

	width := 8
	if win.Len() > 0 && win.Address(win.Len()-1) > 0xFFFFFFFF {
		width = 16
	}

	bw := bufio.NewWriter(w)
	for row := 0; row < win.Len(); row += perRow {
		fmt.Fprintf(bw, "%0*X  ", width, win.Address(row))

		for i := row; i < row+perRow; i++ {
			if i >= win.Len() {
				bw.WriteString("   ")
				continue
			}
			bw.WriteString(f.cell(win, i))
			if marks[i] != MarkNone {
				bw.WriteByte('*')
			} else {
				bw.WriteByte(' ')
			}
		}

		bw.WriteString(" |")
		for i := row; i < row+perRow && i < win.Len(); i++ {
			if win.Valid[i] {
				bw.WriteByte(Printable(win.Data[i]))
			} else {
				bw.WriteByte(' ')
			}
		}
		bw.WriteString("|\n")
	}
	return bw.Flush()
}

func (f *Formatter) cell(win Window, i int) string {
	switch {
	case !win.Valid[i]:
		return "??"
	case f.DimZeros && win.Data[i] == 0:
		return ".."
	default:
		return fmt.Sprintf("%02X", win.Data[i])
	}
}

// Printable returns b if it is printable ASCII (0x20..0x7E), else '.'.
func Printable(b byte) byte {
	if b >= 0x20 && b <= 0x7E {
		return b
	}
	return '.'
}
