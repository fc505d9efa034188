package grid

import "testing"

func TestSetStringPlacesWideClusters(t *testing.T) {
	b := NewBuffer(Rect{Width: 8, Height: 1})
	end := b.SetString(0, 0, "a世b", Style{FG: Green}, 8)
	if end != 4 {
		t.Fatalf("expected end column 4, got %d", end)
	}
	want := []string{"a", "世", " ", "b", " "}
	for i, sym := range want {
		if b.Cells[i].Symbol != sym {
			t.Fatalf("cell %d: got %q want %q", i, b.Cells[i].Symbol, sym)
		}
	}
	if b.Cells[1].FG != Green || b.Cells[2].FG != Reset {
		t.Fatalf("expected style on cluster only, got %#v %#v", b.Cells[1], b.Cells[2])
	}
}

func TestSetStringStopsBeforeOverflow(t *testing.T) {
	b := NewBuffer(Rect{Width: 3, Height: 1})
	end := b.SetString(0, 0, "ab世", Style{}, 3)
	if end != 2 || b.Cells[2].Symbol != " " {
		t.Fatalf("expected wide cluster to be dropped, end=%d cells=%#v", end, b.Cells)
	}
}

func TestSetStringKeepsCombiningMarks(t *testing.T) {
	b := NewBuffer(Rect{Width: 4, Height: 1})
	b.SetString(0, 0, "éx", Style{}, 4)
	if b.Cells[0].Symbol != "é" || b.Cells[1].Symbol != "x" {
		t.Fatalf("unexpected cells %#v", b.Cells[:2])
	}
}

func TestSetLinePatchesSpanOverLineStyle(t *testing.T) {
	b := NewBuffer(Rect{Width: 6, Height: 1})
	line := Line{
		Style: Style{BG: RGB(40, 40, 40)},
		Spans: []Span{{Text: "ok", Style: Style{FG: Green, Mod: Bold}}},
	}
	b.SetLine(0, 0, line, 6)
	if b.Cells[0].BG != RGB(40, 40, 40) || b.Cells[0].FG != Green || !b.Cells[0].Mod.Has(Bold) {
		t.Fatalf("unexpected first cell %#v", b.Cells[0])
	}
	if b.Cells[5].BG != RGB(40, 40, 40) {
		t.Fatalf("expected line background to fill the band, got %#v", b.Cells[5])
	}
}

func TestRectRows(t *testing.T) {
	r := Rect{Y: 10, Width: 20, Height: 5}
	rows := r.Rows(2, 1, 4)
	want := []Rect{
		{Y: 10, Width: 20, Height: 2},
		{Y: 12, Width: 20, Height: 1},
		{Y: 13, Width: 20, Height: 2},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: got %v want %v", i, rows[i], want[i])
		}
	}
}
