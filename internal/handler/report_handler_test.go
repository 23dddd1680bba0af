package handler

import "testing"

func TestClampPage(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{"defaults pass through", 1, 10, 1, 10},
		{"zero page floors to one", 0, 10, 1, 10},
		{"negative page floors to one", -3, 10, 1, 10},
		{"zero per_page falls back to default", 2, 0, 2, 10},
		{"oversized per_page is capped", 1, 5000, 1, 100},
		{"cap boundary is allowed", 1, 100, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage := clampPage(tt.page, tt.perPage)
			if page != tt.wantPage || perPage != tt.wantPerPage {
				t.Errorf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
					tt.page, tt.perPage, page, perPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}
