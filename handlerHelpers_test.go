package main

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContextWithQuery(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestLimitQueryDefaultsWhenAbsent(t *testing.T) {
	c := testContextWithQuery("")

	limit, err := limitQuery(c)
	if err != nil {
		t.Fatalf("limitQuery: %v", err)
	}
	if limit == nil {
		t.Fatal("limit must never be nil; list handlers dereference it")
	}
	if *limit != defaultPageSize {
		t.Errorf("default limit = %d, want %d", *limit, defaultPageSize)
	}
}

func TestLimitQueryBounds(t *testing.T) {
	cases := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"limit=1", 1, false},
		{"limit=200", 200, false},
		{"limit=0", 0, true},
		{"limit=-5", 0, true},
		{"limit=201", 0, true},
		{"limit=abc", 0, true},
	}
	for _, tc := range cases {
		limit, err := limitQuery(testContextWithQuery(tc.query))
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected an error", tc.query)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.query, err)
			continue
		}
		if *limit != tc.want {
			t.Errorf("%s: limit = %d, want %d", tc.query, *limit, tc.want)
		}
	}
}
