package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=50&offset=10", 50, 10},
		{"?limit=500", MaxLimit, 0},
		{"?limit=0", DefaultLimit, 0},
		{"?limit=-3&offset=-7", DefaultLimit, 0},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())

			p := FromContext(c)
			if p.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %d", tt.wantLimit, p.Limit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("expected offset %d, got %d", tt.wantOffset, p.Offset)
			}
		})
	}
}

func TestNewPage(t *testing.T) {
	page := NewPage([]string{"a", "b"}, 5, Params{Limit: 2, Offset: 0})
	if !page.HasMore {
		t.Error("expected more after the first page")
	}
	if page.Limit != 2 || page.Total != 5 {
		t.Errorf("unexpected envelope: %+v", page)
	}

	last := NewPage([]string{"e"}, 5, Params{Limit: 2, Offset: 4})
	if last.HasMore {
		t.Error("expected no more after the last page")
	}

	empty := NewPage[int](nil, 0, Params{Limit: 20})
	if empty.Data == nil || len(empty.Data) != 0 {
		t.Errorf("expected empty non-nil data, got %#v", empty.Data)
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name     string
		p        Params
		want     []int
		wantMore bool
	}{
		{"first page", Params{Limit: 2, Offset: 0}, []int{1, 2}, true},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}, true},
		{"last partial page", Params{Limit: 2, Offset: 4}, []int{5}, false},
		{"past the end", Params{Limit: 2, Offset: 9}, []int{}, false},
		{"whole set", Params{Limit: 20, Offset: 0}, []int{1, 2, 3, 4, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Slice(items, tt.p)
			if page.Total != len(items) {
				t.Errorf("expected total %d, got %d", len(items), page.Total)
			}
			if page.HasMore != tt.wantMore {
				t.Errorf("expected has_more %v, got %v", tt.wantMore, page.HasMore)
			}
			if len(page.Data) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, page.Data)
			}
			for i := range tt.want {
				if page.Data[i] != tt.want[i] {
					t.Errorf("item %d: expected %d, got %d", i, tt.want[i], page.Data[i])
				}
			}
		})
	}
}
