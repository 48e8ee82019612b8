package vroom

import "testing"

func TestTranspose_RoundTrip(t *testing.T) {
	rows := [][]int{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
	}
	cols := transpose(rows, 3)
	back := transpose(cols, 4)

	for r := range rows {
		for c := range rows[r] {
			if back[r][c] != rows[r][c] {
				t.Fatalf("round trip mismatch at (%d,%d): got %d, want %d", r, c, back[r][c], rows[r][c])
			}
		}
	}
}

func TestTranspose_SpansMultipleBlocks(t *testing.T) {
	const rowsN, colsN = 130, 70
	rows := make([][]int, rowsN)
	for r := range rows {
		rows[r] = make([]int, colsN)
		for c := range rows[r] {
			rows[r][c] = r*1000 + c
		}
	}
	cols := transpose(rows, colsN)
	if len(cols) != colsN {
		t.Fatalf("got %d columns, want %d", len(cols), colsN)
	}
	for c := 0; c < colsN; c++ {
		if len(cols[c]) != rowsN {
			t.Fatalf("column %d has %d rows, want %d", c, len(cols[c]), rowsN)
		}
		for r := 0; r < rowsN; r++ {
			if cols[c][r] != r*1000+c {
				t.Fatalf("cols[%d][%d] = %d, want %d", c, r, cols[c][r], r*1000+c)
			}
		}
	}
}
