package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Errors returned by the Correo Argentino client.
var (
	ErrCorreoUnauthorized = errors.New("correo: authentication rejected")
	ErrCorreoUnavailable  = errors.New("correo: service unavailable")
)

const (
	defaultCorreoTimeout     = 15 * time.Second
	defaultTokenLifetime     = 50 * time.Minute
	tokenExpirySafetyWindow  = 2 * time.Minute
	maxCorreoResponseBodyLen = 1 << 20
)

// CorreoLogger defines the logging contract for courier API operations.
type CorreoLogger func(ctx context.Context, event string, fields map[string]any)

// CorreoConfig configures the MiCorreo REST client.
type CorreoConfig struct {
	BaseURL    string
	Username   string
	Password   string
	CustomerID string
	HTTPClient *http.Client
	Logger     CorreoLogger
	Clock      func() time.Time
}

// CorreoClient talks to the Correo Argentino MiCorreo API. Authentication is
// a Basic-to-Bearer exchange; the bearer token is cached until shortly before
// its reported expiry.
type CorreoClient struct {
	baseURL    string
	username   string
	password   string
	customerID string
	httpClient *http.Client
	logger     CorreoLogger
	clock      func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewCorreoClient constructs a MiCorreo client from the given configuration.
func NewCorreoClient(cfg CorreoConfig) (*CorreoClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("correo: base url is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("correo: username and password are required")
	}
	if strings.TrimSpace(cfg.CustomerID) == "" {
		return nil, errors.New("correo: customer id is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultCorreoTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &CorreoClient{
		baseURL:    baseURL,
		username:   strings.TrimSpace(cfg.Username),
		password:   strings.TrimSpace(cfg.Password),
		customerID: strings.TrimSpace(cfg.CustomerID),
		httpClient: httpClient,
		logger:     logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}, nil
}

type correoTokenResponse struct {
	Token  string `json:"token"`
	Expire string `json:"expire"`
}

// bearerToken returns a cached token, exchanging the Basic credentials for a
// fresh one when the cache is empty or about to expire.
func (c *CorreoClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if c.token != "" && now.Before(c.tokenExpiry.Add(-tokenExpirySafetyWindow)) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", nil)
	if err != nil {
		return "", fmt.Errorf("correo: build token request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrCorreoUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrCorreoUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token exchange returned %d", ErrCorreoUnavailable, resp.StatusCode)
	}

	var payload correoTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCorreoResponseBodyLen)).Decode(&payload); err != nil {
		return "", fmt.Errorf("correo: decode token response: %w", err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		return "", errors.New("correo: token response missing token")
	}

	expiry := now.Add(defaultTokenLifetime)
	if payload.Expire != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.Expire); err == nil {
			expiry = parsed.UTC()
		}
	}

	c.token = payload.Token
	c.tokenExpiry = expiry
	c.logger(ctx, "shipping.correo.token.refreshed", map[string]any{
		"expiresAt": expiry,
	})
	return c.token, nil
}

func (c *CorreoClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("correo: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("correo: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrCorreoUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Token may have been revoked server side; drop the cache so the
		// next call re-authenticates.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return ErrCorreoUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s returned %d", ErrCorreoUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxCorreoResponseBodyLen))
		return fmt.Errorf("correo: %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCorreoResponseBodyLen)).Decode(out); err != nil {
		return fmt.Errorf("correo: decode response: %w", err)
	}
	return nil
}

// ValidateUserRequest carries the MiCorreo account credentials to verify.
type ValidateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateUserResponse reports the customer id bound to validated credentials.
type ValidateUserResponse struct {
	CustomerID string `json:"customerId"`
}

// ValidateUser checks a MiCorreo account and returns its customer id.
func (c *CorreoClient) ValidateUser(ctx context.Context, req ValidateUserRequest) (ValidateUserResponse, error) {
	var out ValidateUserResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/validate", nil, req, &out); err != nil {
		return ValidateUserResponse{}, err
	}
	return out, nil
}

// Dimensions describes parcel measurements in centimetres and grams.
type Dimensions struct {
	WeightGrams int `json:"weight"`
	HeightCm    int `json:"height"`
	WidthCm     int `json:"width"`
	LengthCm    int `json:"length"`
}

// RatesRequest asks for shipping prices between two postal codes.
type RatesRequest struct {
	CustomerID            string     `json:"customerId"`
	PostalCodeOrigin      string     `json:"postalCodeOrigin"`
	PostalCodeDestination string     `json:"postalCodeDestination"`
	DeliveredType         string     `json:"deliveredType"`
	Dimensions            Dimensions `json:"dimensions"`
}

// Rate is a single priced delivery option.
type Rate struct {
	DeliveredType   string  `json:"deliveredType"`
	ProductType     string  `json:"productType"`
	ProductName     string  `json:"productName"`
	Price           float64 `json:"price"`
	DeliveryTimeMin string  `json:"deliveryTimeMin"`
	DeliveryTimeMax string  `json:"deliveryTimeMax"`
}

type ratesResponse struct {
	CustomerID string `json:"customerId"`
	Rates      []Rate `json:"rates"`
}

// GetRates quotes delivery options for a parcel.
func (c *CorreoClient) GetRates(ctx context.Context, req RatesRequest) ([]Rate, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		req.CustomerID = c.customerID
	}
	var out ratesResponse
	if err := c.doJSON(ctx, http.MethodPost, "/rates", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Rates, nil
}

// Agency is a courier branch office that can receive or hand over parcels.
type Agency struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Manager      string `json:"manager"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	City         string `json:"city"`
	ProvinceCode string `json:"provinceCode"`
	PostalCode   string `json:"postalCode"`
	Services     struct {
		Admission bool `json:"admission"`
		Delivery  bool `json:"delivery"`
	} `json:"services"`
}

// GetAgencies lists branch offices for a province.
func (c *CorreoClient) GetAgencies(ctx context.Context, provinceCode string) ([]Agency, error) {
	query := url.Values{}
	query.Set("customerId", c.customerID)
	query.Set("provinceCode", strings.ToUpper(strings.TrimSpace(provinceCode)))
	var out []Agency
	if err := c.doJSON(ctx, http.MethodGet, "/agencies", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ShipmentImport is the payload registering a new shipment with the courier.
type ShipmentImport struct {
	CustomerID    string     `json:"customerId"`
	ExtOrderID    string     `json:"extOrderId"`
	OrderNumber   string     `json:"orderNumber"`
	Sender        Sender     `json:"sender"`
	Recipient     Recipient  `json:"recipient"`
	ShippingData  Address    `json:"shipping"`
	AgencyCode    *string    `json:"agency,omitempty"`
	DeliveredType string     `json:"deliveredType"`
	ProductType   string     `json:"productType"`
	DeclaredValue float64    `json:"declaredValue"`
	Dimensions    Dimensions `json:"dimensions"`
}

// Sender identifies the shipper account.
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Recipient identifies the parcel destination contact.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Address is the structured destination sent to the courier.
type Address struct {
	StreetName   string `json:"streetName"`
	StreetNumber string `json:"streetNumber"`
	Floor        string `json:"floor,omitempty"`
	Apartment    string `json:"apartment,omitempty"`
	City         string `json:"city"`
	ProvinceCode string `json:"provinceCode"`
	PostalCode   string `json:"postalCode"`
}

// ShipmentImportResponse reports the tracking number assigned by the courier.
type ShipmentImportResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status"`
}

// ImportShipment registers a shipment and returns its tracking number.
func (c *CorreoClient) ImportShipment(ctx context.Context, req ShipmentImport) (ShipmentImportResponse, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		req.CustomerID = c.customerID
	}
	var out ShipmentImportResponse
	if err := c.doJSON(ctx, http.MethodPost, "/shipping/import", nil, req, &out); err != nil {
		return ShipmentImportResponse{}, err
	}
	if strings.TrimSpace(out.TrackingNumber) == "" {
		return ShipmentImportResponse{}, errors.New("correo: import response missing tracking number")
	}
	c.logger(ctx, "shipping.correo.shipment.imported", map[string]any{
		"extOrderId": req.ExtOrderID,
		"tracking":   out.TrackingNumber,
	})
	return out, nil
}

// TrackingEvent is a single scan in a shipment's history.
type TrackingEvent struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

// GetTracking retrieves the scan history for a tracking number.
func (c *CorreoClient) GetTracking(ctx context.Context, trackingNumber string) ([]TrackingEvent, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, errors.New("correo: tracking number is required")
	}
	query := url.Values{}
	query.Set("customerId", c.customerID)
	query.Set("trackingNumber", trackingNumber)
	var out []TrackingEvent
	if err := c.doJSON(ctx, http.MethodGet, "/shipping/tracking", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
