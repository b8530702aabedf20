package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"PodMatch-App/internal/domain/apperror"
	"PodMatch-App/internal/domain/model"
	"PodMatch-App/internal/domain/repository"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// エリア名として採用する住所要素の優先順（細かい順）
var neighborhoodComponentTypes = []string{
	"neighborhood",
	"sublocality",
	"locality",
	"administrative_area_level_2",
	"administrative_area_level_1",
}

// ErrNoNeighborhood 逆ジオコーディングの結果にエリア名がない
var ErrNoNeighborhood = errors.New("エリア名が見つかりませんでした")

// GoogleReverseGeocoder はGoogle Maps Geocoding APIで座標からエリア名を取得する
type GoogleReverseGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleReverseGeocoder は新しいリゾルバを生成する
func NewGoogleReverseGeocoder(apiKey string, timeout time.Duration) *GoogleReverseGeocoder {
	return &GoogleReverseGeocoder{
		apiKey:     apiKey,
		baseURL:    defaultGeocodeURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ repository.LocationResolver = (*GoogleReverseGeocoder)(nil)

// ResolveNeighborhood 座標のエリア名を返す。
// APIキーが拒否された場合は apperror.ErrPermissionDenied を返す。
func (g *GoogleReverseGeocoder) ResolveNeighborhood(ctx context.Context, coord model.Coordinate) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.buildURL(coord), nil)
	if err != nil {
		return "", fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("APIリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", apperror.New(apperror.CodePermissionDenied, "ジオコーディングAPIへのアクセスが拒否されました")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status)
	}

	var apiResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("JSONのパースに失敗: %w", err)
	}

	switch apiResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return "", ErrNoNeighborhood
	case "REQUEST_DENIED":
		return "", apperror.New(apperror.CodePermissionDenied, "ジオコーディングAPIへのアクセスが拒否されました: "+apiResp.ErrorMessage)
	default:
		return "", fmt.Errorf("ジオコーディングAPIエラー: %s %s", apiResp.Status, apiResp.ErrorMessage)
	}

	if name := pickNeighborhood(apiResp.Results); name != "" {
		return name, nil
	}
	return "", ErrNoNeighborhood
}

func (g *GoogleReverseGeocoder) buildURL(coord model.Coordinate) string {
	params := url.Values{}
	params.Set("latlng",
		strconv.FormatFloat(coord.Latitude, 'f', -1, 64)+","+strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	params.Set("key", g.apiKey)
	return g.baseURL + "?" + params.Encode()
}

func pickNeighborhood(results []geocodeResult) string {
	for _, wanted := range neighborhoodComponentTypes {
		for _, result := range results {
			for _, component := range result.AddressComponents {
				for _, t := range component.Types {
					if t == wanted && component.LongName != "" {
						return component.LongName
					}
				}
			}
		}
	}
	return ""
}

// --- Google Maps APIのレスポンスをパースするための構造体 ---

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}
