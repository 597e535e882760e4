// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"strings"
	"testing"
)

func TestRenderBasic(t *testing.T) {
	got, err := Render("# widget\n\nA **small** widget.")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got == "" {
		t.Error("Render() returned empty output")
	}
	want := "<h1>widget</h1>"
	if !strings.Contains(got, want) {
		t.Errorf("Render() = %q, want it to contain %q", got, want)
	}
}

func TestRenderTableExtension(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	got, err := Render(src)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "<table>") {
		t.Errorf("Render(table) = %q, want a <table> element (GFM extension)", got)
	}
}
