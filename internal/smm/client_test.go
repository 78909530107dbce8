package smm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panelServer(t *testing.T, handle func(action string, body map[string]interface{}) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "key", body["api_key"])
		assert.Equal(t, "secret", body["secret_key"])

		action, _ := body["action"].(string)
		status, resp := handle(action, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(resp))
	}))
}

func TestClientServices(t *testing.T) {
	srv := panelServer(t, func(action string, _ map[string]interface{}) (int, string) {
		require.Equal(t, "services", action)
		// Ids and prices arrive as a mix of strings and numbers.
		return 200, `{"status":true,"data":[
			{"id":101,"name":"Likes","price":"12.5"},
			{"id":"202","name":"Views","price":90}
		]}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	services, err := client.Services(context.Background())
	require.NoError(t, err)

	require.Len(t, services, 2)
	assert.Equal(t, Service{ID: "101", Name: "Likes", Price: 12.5}, services[0])
	assert.Equal(t, Service{ID: "202", Name: "Views", Price: 90}, services[1])
}

func TestClientRejectedResponse(t *testing.T) {
	srv := panelServer(t, func(string, map[string]interface{}) (int, string) {
		return 200, `{"status":false,"error":"invalid key","data":[{"id":"1"}]}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)

	// status=false means the data block is untrusted even when present.
	_, err := client.Services(context.Background())
	assert.ErrorIs(t, err, ErrAPIRejected)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestClientPlaceOrder(t *testing.T) {
	srv := panelServer(t, func(action string, body map[string]interface{}) (int, string) {
		require.Equal(t, "order", action)
		assert.Equal(t, "101", body["service"])
		assert.Equal(t, "https://example.com/p/1", body["data"])
		assert.Equal(t, float64(1000), body["quantity"])
		return 200, `{"status":true,"data":{"id":987654}}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	id, err := client.PlaceOrder(context.Background(), "101", "https://example.com/p/1", 1000)
	require.NoError(t, err)
	assert.Equal(t, "987654", id)
}

func TestClientPlaceOrderMissingID(t *testing.T) {
	srv := panelServer(t, func(string, map[string]interface{}) (int, string) {
		return 200, `{"status":true,"data":{}}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	_, err := client.PlaceOrder(context.Background(), "101", "https://x", 1000)
	assert.ErrorIs(t, err, ErrAPIRejected)
}

func TestClientGetOrderStatus(t *testing.T) {
	srv := panelServer(t, func(action string, body map[string]interface{}) (int, string) {
		require.Equal(t, "status", action)
		assert.Equal(t, "987654", body["id"])
		return 200, `{"status":true,"data":{"status":"In progress","start_count":"150","remains":42}}`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	st, err := client.GetOrderStatus(context.Background(), "987654")
	require.NoError(t, err)

	assert.Equal(t, "In progress", st.Status)
	assert.Equal(t, 150, st.StartCount)
	assert.Equal(t, 42, st.Remains)
}

func TestClientGarbageResponse(t *testing.T) {
	srv := panelServer(t, func(string, map[string]interface{}) (int, string) {
		return 200, `<html>maintenance</html>`
	})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", 5*time.Second)
	_, err := client.Services(context.Background())
	assert.Error(t, err)
}
