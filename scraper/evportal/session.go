package evportal

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ev-subsidy-scraper/models"
	"ev-subsidy-scraper/scraper/fetch"
	"ev-subsidy-scraper/utils"
)

// ErrSessionInit is returned when the portal landing pages cannot be loaded
var ErrSessionInit = errors.New("session initialization failed")

// Portal paths relative to the base URL
const (
	PathMain          = "/nportal/main.do"
	PathPaymentCheck  = "/nportal/buySupprt/initSubsidyPaymentCheckAction.do"
	PathRegionList    = "/nportal/buySupprt/psPopupLocalCarPirce.do"
	PathRegionDetail  = "/nportal/buySupprt/psPopupLocalCarModelPrice.do"
	PathSubsidyTables = "/nportal/buySupprt/initBuySubsidySupprtAction.do"
)

// Session holds the portal conversation: cookies live in the fetcher, the
// visited list pages are tracked here
type Session struct {
	fetcher fetch.Fetcher
	baseURL string
	logger  *utils.Logger

	ready  bool
	listed map[string]bool
}

// NewSession wraps a fetcher for the portal at baseURL
func NewSession(f fetch.Fetcher, baseURL string, logger *utils.Logger) *Session {
	return &Session{fetcher: f, baseURL: baseURL, logger: logger, listed: make(map[string]bool)}
}

// Init loads the landing pages that hand out the session cookies
func (s *Session) Init(ctx context.Context) error {
	for _, path := range []string{PathMain, PathPaymentCheck} {
		s.logger.Debug("GET %s", path)
		if _, err := s.fetcher.Fetch(ctx, fetch.Request{Method: "GET", URL: s.baseURL + path}); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrSessionInit, path, err)
		}
	}
	s.ready = true
	return nil
}

// Ready reports whether Init succeeded
func (s *Session) Ready() bool {
	return s.ready
}

// RegionList posts the region list popup for a year and car type
func (s *Session) RegionList(ctx context.Context, year int, carType string) (string, error) {
	body, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method: "POST",
		URL:    s.baseURL + PathRegionList,
		Form:   map[string]string{"year1": strconv.Itoa(year), "car_type": carType},
		Headers: map[string]string{
			"Referer": s.baseURL + PathPaymentCheck,
			"Origin":  s.baseURL,
		},
	})
	if err != nil {
		return "", fmt.Errorf("region list: %w", err)
	}
	s.listed[listKey(year, carType)] = true
	return body, nil
}

func listKey(year int, carType string) string {
	return strconv.Itoa(year) + "|" + carType
}

// RegionDetail posts the per-region vehicle popup. The list popup is visited
// first once per year and car type since the portal expects it as the referrer.
func (s *Session) RegionDetail(ctx context.Context, year int, carType string, region models.Region) (string, error) {
	if !s.listed[listKey(year, carType)] {
		if _, err := s.RegionList(ctx, year, carType); err != nil {
			s.logger.Debug("list page before detail failed: %v", err)
		}
	}

	body, err := s.fetcher.Fetch(ctx, fetch.Request{
		Method: "POST",
		URL:    s.baseURL + PathRegionDetail,
		Form: map[string]string{
			"year":     strconv.Itoa(year),
			"local_cd": region.Code,
			"car_type": carType,
			"local_nm": region.Name,
		},
		Headers: map[string]string{
			"Referer":          s.baseURL + PathRegionList,
			"Origin":           s.baseURL,
			"X-Requested-With": "XMLHttpRequest",
		},
	})
	if err != nil {
		return "", fmt.Errorf("region detail %s: %w", region.Name, err)
	}
	return body, nil
}

// SubsidyPage loads the national and local subsidy overview
func (s *Session) SubsidyPage(ctx context.Context) (string, error) {
	body, err := s.fetcher.Fetch(ctx, fetch.Request{Method: "GET", URL: s.baseURL + PathSubsidyTables})
	if err != nil {
		return "", fmt.Errorf("subsidy page: %w", err)
	}
	return body, nil
}
