package main

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/wippyai/geobridge/geometry"
)

func TestParsePoints(t *testing.T) {
	tests := []struct {
		in      string
		want    []geometry.Coordinate
		wantErr bool
	}{
		{"", []geometry.Coordinate{}, false},
		{"0,0 3,4", []geometry.Coordinate{{X: 0, Y: 0}, {X: 3, Y: 4}}, false},
		{"1.5,2;  -1,0", []geometry.Coordinate{{X: 1.5, Y: 2}, {X: -1, Y: 0}}, false},
		{"1, 2", nil, true},
		{"1", nil, true},
		{"a,1", nil, true},
		{"1,b", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoints(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePoints(%q) error = %v", tt.in, err)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parsePoints(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("parsePoints(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSession_Measure(t *testing.T) {
	s, err := newSession(zap.NewNop())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}

	m, err := s.measure([]geometry.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("measure failed: %v", err)
	}
	if math.Abs(m.length-(2+math.Sqrt2)) > 1e-12 {
		t.Errorf("length = %v", m.length)
	}
	if len(m.points) != 4 {
		t.Errorf("points = %v", m.points)
	}
	if !strings.HasSuffix(m.description, "containing 4 points (closed)") {
		t.Errorf("description = %q", m.description)
	}

	m, err = s.measure(nil)
	if err != nil {
		t.Fatalf("measure(nil) failed: %v", err)
	}
	if m.length != 0 || len(m.points) != 0 {
		t.Errorf("empty measurement = %+v", m)
	}

	if err := s.close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestInteractiveModel_Tabs(t *testing.T) {
	s, err := newSession(zap.NewNop())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	defer s.close()

	m := newInteractiveModel(s)
	m.inputs[tabAverage][0].SetValue("2")
	m.inputs[tabAverage][1].SetValue("5")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.err != nil || m.result != "average = 3.5" {
		t.Fatalf("average result = %q, %v", m.result, m.err)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.tab != tabDistance {
		t.Fatalf("tab = %v, want distance", m.tab)
	}
	for i, v := range []string{"0", "0", "3", "4"} {
		m.inputs[tabDistance][i].SetValue(v)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.result != "distance = 5" {
		t.Fatalf("distance result = %q, %v", m.result, m.err)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	m.inputs[tabLength][0].SetValue("0,0 3,4")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.result, "length = 5") || !strings.Contains(m.result, "(opened)") {
		t.Fatalf("length result = %q, %v", m.result, m.err)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	m.inputs[tabDistance][0].SetValue("x")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Fatal("View should render the error")
	}
}
