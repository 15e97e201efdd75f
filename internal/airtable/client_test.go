package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("AIRTABLE_API_URL", srv.URL)
	return NewClient("key-test", "appTest")
}

func TestSelect(t *testing.T) {
	t.Run("should follow offset tokens until the set is exhausted", func(t *testing.T) {
		var calls []string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, r.URL.Query().Get("offset"))
			assert.Equal(t, "Bearer key-test", r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("offset") == "" {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"records": []map[string]interface{}{
						{"id": "rec1", "createdTime": "2024-01-01T00:00:00.000Z", "fields": map[string]interface{}{"titre": "Un"}},
						{"id": "rec2", "createdTime": "2024-01-02T00:00:00.000Z", "fields": map[string]interface{}{"titre": "Deux"}},
					},
					"offset": "next-page",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"records": []map[string]interface{}{
					{"id": "rec3", "createdTime": "2024-01-03T00:00:00.000Z", "fields": map[string]interface{}{"titre": "Trois"}},
				},
			})
		}))

		records, err := client.Select(context.Background(), "Recettes", SelectOptions{PageSize: 100})

		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, []string{"", "next-page"}, calls)
		assert.Equal(t, "rec3", records[2].ID)
	})

	t.Run("should pass filter and sort parameters", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, `{type} = "Dessert"`, q.Get("filterByFormula"))
			assert.Equal(t, "dateCreation", q.Get("sort[0][field]"))
			assert.Equal(t, "desc", q.Get("sort[0][direction]"))
			json.NewEncoder(w).Encode(map[string]interface{}{"records": []map[string]interface{}{}})
		}))

		records, err := client.Select(context.Background(), "Recettes", SelectOptions{
			FilterByFormula: `{type} = "Dessert"`,
			SortField:       "dateCreation",
			SortDirection:   "desc",
		})

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("should surface upstream errors", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))

		_, err := client.Select(context.Background(), "Recettes", SelectOptions{})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestFind(t *testing.T) {
	t.Run("should return the record", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/appTest/Recettes/rec123", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":          "rec123",
				"createdTime": "2024-01-01T00:00:00.000Z",
				"fields":      map[string]interface{}{"titre": "Tarte"},
			})
		}))

		record, err := client.Find(context.Background(), "Recettes", "rec123")

		require.NoError(t, err)
		assert.Equal(t, "rec123", record.ID)
		assert.Equal(t, "Tarte", record.Fields["titre"])
	})

	t.Run("should map 404 to ErrRecordNotFound", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		record, err := client.Find(context.Background(), "Recettes", "missing")

		assert.Nil(t, record)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestCreateUpdateDestroy(t *testing.T) {
	t.Run("create posts fields and returns the record", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			var body map[string]map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Salade", body["fields"]["titre"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id": "recNew", "fields": body["fields"],
			})
		}))

		record, err := client.Create(context.Background(), "Recettes", map[string]interface{}{"titre": "Salade"})

		require.NoError(t, err)
		assert.Equal(t, "recNew", record.ID)
	})

	t.Run("update patches only the given fields", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			var body map[string]map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, true, body["fields"]["estFavori"])
			assert.Len(t, body["fields"], 1)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "rec123", "fields": body["fields"]})
		}))

		record, err := client.Update(context.Background(), "Recettes", "rec123", map[string]interface{}{"estFavori": true})

		require.NoError(t, err)
		assert.Equal(t, "rec123", record.ID)
	})

	t.Run("destroy issues a delete", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			json.NewEncoder(w).Encode(map[string]interface{}{"deleted": true, "id": "rec123"})
		}))

		err := client.Destroy(context.Background(), "Recettes", "rec123")

		assert.NoError(t, err)
	})
}
