package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restock-systems/stockwatch/internal/models"
)

func TestRESTRepositoryListByOwner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("owner_id"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 7, "name": "Sugar", "unit": "kg", "current_stock": 2, "min_stock": 5, "avg_daily_sales": 1.5, "owner_id": "user-1"},
			{"id": "b9f1", "name": "Salt", "unit": "kg", "current_stock": 40, "min_stock": 5, "avg_daily_sales": null, "owner_id": "user-1"}
		]`))
	}))
	defer srv.Close()

	repo := NewRESTRepository(srv.URL+"/", "service-key", "", "", time.Second)
	records, err := repo.ListByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.RecordID("7"), records[0].ID)
	assert.Equal(t, "Sugar", records[0].Name)
	assert.InDelta(t, 1.5, records[0].AvgDailySales, 1e-9)
	assert.Equal(t, models.RecordID("b9f1"), records[1].ID)
	assert.Zero(t, records[1].AvgDailySales)
}

func TestRESTRepositoryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := NewRESTRepository(srv.URL, "k", "", "", time.Second).ListByOwner(context.Background(), "u")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRESTRepositoryFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		}},
		{"forbidden", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
		}},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewRESTRepository(srv.URL, "k", "", "", time.Second).ListByOwner(context.Background(), "u")
			assert.ErrorIs(t, err, models.ErrExternalService)
		})
	}
}

func TestRESTRepositoryPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, NewRESTRepository(srv.URL, "k", "", "", time.Second).Ping(context.Background()))
}

func TestBoundedContext(t *testing.T) {
	ctx, cancel := boundedContext(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	ctx, cancel = boundedContext(parent, time.Hour)
	defer cancel()
	deadline, _ = ctx.Deadline()
	want, _ := parent.Deadline()
	assert.Equal(t, want, deadline)
}
