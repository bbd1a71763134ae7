package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/restock-systems/stockwatch/internal/models"
)

// RESTRepository reads stock records through a PostgREST endpoint
// (<base>/rest/v1/<table>) using the service key.
type RESTRepository struct {
	baseURL     string
	serviceKey  string
	table       string
	ownerColumn string
	httpClient  *http.Client
}

// NewRESTRepository creates a REST-backed repository.
func NewRESTRepository(baseURL, serviceKey, table, ownerColumn string, timeout time.Duration) *RESTRepository {
	if table == "" {
		table = "products"
	}
	if ownerColumn == "" {
		ownerColumn = "owner_id"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTRepository{
		baseURL:     strings.TrimRight(baseURL, "/"),
		serviceKey:  serviceKey,
		table:       table,
		ownerColumn: ownerColumn,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// ListByOwner returns the owner's records in id order.
func (r *RESTRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StockRecord, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(r.ownerColumn, "eq."+ownerID)
	q.Set("order", "id.asc")

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", r.baseURL, url.PathEscape(r.table), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrExternalService, err)
	}
	r.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: data store unreachable: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: data store returned %d: %s", models.ErrExternalService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	records := []*models.StockRecord{}
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode stock records: %v", models.ErrExternalService, err)
	}
	return records, nil
}

// Ping checks the REST endpoint answers.
func (r *RESTRepository) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	r.authorize(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: data store unreachable: %v", models.ErrExternalService, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: data store returned %d", models.ErrExternalService, resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (r *RESTRepository) Close() error {
	return nil
}

func (r *RESTRepository) authorize(req *http.Request) {
	req.Header.Set("apikey", r.serviceKey)
	req.Header.Set("Authorization", "Bearer "+r.serviceKey)
}
