// Package remote is the one concrete adapter for the domain/remote.GameClient
// port: an authenticated HTTP client against the OGame game server, layered
// with a token-bucket rate limiter, exponential-backoff retries and a
// circuit breaker, grounded on the teacher's SpaceTradersClient.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	domremote "github.com/ogsentinel/fleetwatch/internal/domain/remote"
	"github.com/ogsentinel/fleetwatch/internal/domain/shared"
)

// Client implements domain/remote.GameClient against a live OGame server.
// Session authentication (the game's ogame-session cookie) is supplied at
// construction; this client does not perform the login handshake itself.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	baseURL        string
	sessionCookie  string
	minDelay       time.Duration
	maxRetries     int
	backoffBase    time.Duration
	circuitBreaker *CircuitBreaker
	clock          shared.Clock
	lastRequest    time.Time
}

// Config carries the settings a Client needs beyond the session cookie.
type Config struct {
	BaseURL              string
	RequestTimeout       time.Duration
	DelayBetweenRequests time.Duration
	RequestsPerSecond    float64
	Burst                int
	MaxRetries           int
	BackoffBase          time.Duration
	CircuitThreshold     int
	CircuitOpenDuration  time.Duration
}

// New creates a Client. If clock is nil, uses RealClock.
func New(cfg Config, sessionCookie string, clock shared.Clock) *Client {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		rateLimiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		baseURL:        cfg.BaseURL,
		sessionCookie:  sessionCookie,
		minDelay:       cfg.DelayBetweenRequests,
		maxRetries:     cfg.MaxRetries,
		backoffBase:    cfg.BackoffBase,
		circuitBreaker: NewCircuitBreaker(cfg.CircuitThreshold, cfg.CircuitOpenDuration, clock),
		clock:          clock,
	}
}

type overviewBodyDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Galaxy   int    `json:"galaxy"`
	System   int    `json:"system"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}

type overviewDTO struct {
	Bodies         []overviewBodyDTO `json:"bodies"`
	CharacterClass string            `json:"characterClass"`
}

// GetOverview retrieves the player's planets/moons and active character class.
func (c *Client) GetOverview(ctx context.Context) (domremote.Overview, error) {
	var dto overviewDTO
	if err := c.request(ctx, "GET", "/game/index.php?page=ingame&component=overview", nil, &dto); err != nil {
		return domremote.Overview{}, err
	}

	bodies := make([]domremote.Body, 0, len(dto.Bodies))
	for _, b := range dto.Bodies {
		bodies = append(bodies, domremote.Body{
			ID:   b.ID,
			Name: b.Name,
			Coords: coordinates.New(b.Galaxy, b.System, b.Position,
				coordinates.BodyType(b.Type)),
		})
	}
	return domremote.Overview{
		Bodies:         bodies,
		CharacterClass: domremote.CharacterClass(dto.CharacterClass),
	}, nil
}

type researchDTO struct {
	Levels           map[string]int `json:"levels"`
	HyperspaceLevel  int            `json:"hyperspaceLevel"`
	ActiveProduction bool           `json:"activeProduction"`
}

// GetResearch retrieves technology levels and active-production status.
func (c *Client) GetResearch(ctx context.Context) (domremote.Research, error) {
	var dto researchDTO
	if err := c.request(ctx, "GET", "/game/index.php?page=ingame&component=research", nil, &dto); err != nil {
		return domremote.Research{}, err
	}
	levels := make(map[engine.Drive]int, len(dto.Levels))
	for k, v := range dto.Levels {
		levels[engine.Drive(k)] = v
	}
	return domremote.Research{
		Levels:           levels,
		HyperspaceLevel:  dto.HyperspaceLevel,
		ActiveProduction: dto.ActiveProduction,
	}, nil
}

type shipyardDTO struct {
	Ships            map[string]int `json:"ships"`
	ActiveProduction bool           `json:"activeProduction"`
}

// GetShipyard retrieves ship counts and active production at planet.
func (c *Client) GetShipyard(ctx context.Context, planet coordinates.Coordinates) (domremote.Shipyard, error) {
	path := fmt.Sprintf("/game/index.php?page=ingame&component=shipyard&cp=%s", planetParam(planet))
	var dto shipyardDTO
	if err := c.request(ctx, "GET", path, nil, &dto); err != nil {
		return domremote.Shipyard{}, err
	}
	return domremote.Shipyard{Ships: shipsFromDTO(dto.Ships), ActiveProduction: dto.ActiveProduction}, nil
}

type resourcesDTO struct {
	Metal        int `json:"metal"`
	Crystal      int `json:"crystal"`
	Deuterium    int `json:"deuterium"`
	MetalCap     int `json:"metalStorage"`
	CrystalCap   int `json:"crystalStorage"`
	DeuteriumCap int `json:"deuteriumStorage"`
}

// GetResources retrieves per-resource amount and storage cap at planet.
func (c *Client) GetResources(ctx context.Context, planet coordinates.Coordinates) (domremote.ResourcesWithCap, error) {
	path := fmt.Sprintf("/game/index.php?page=ingame&component=resources&cp=%s", planetParam(planet))
	var dto resourcesDTO
	if err := c.request(ctx, "GET", path, nil, &dto); err != nil {
		return domremote.ResourcesWithCap{}, err
	}
	return domremote.ResourcesWithCap{
		Amount: fleet.Resources{Metal: dto.Metal, Crystal: dto.Crystal, Deuterium: dto.Deuterium},
		Cap:    fleet.Resources{Metal: dto.MetalCap, Crystal: dto.CrystalCap, Deuterium: dto.DeuteriumCap},
	}, nil
}

type eventDTO struct {
	ID               string         `json:"id"`
	OriginGalaxy     int            `json:"originGalaxy"`
	OriginSystem     int            `json:"originSystem"`
	OriginPosition   int            `json:"originPosition"`
	OriginType       string         `json:"originType"`
	DestGalaxy       int            `json:"destGalaxy"`
	DestSystem       int            `json:"destSystem"`
	DestPosition     int            `json:"destPosition"`
	DestType         string         `json:"destType"`
	ArrivalTime      int64          `json:"arrivalTime"`
	Mission          string         `json:"mission"`
	ReturnFlight     bool           `json:"returnFlight"`
	Ships            map[string]int `json:"ships,omitempty"`
	OpposingPlayerID string         `json:"opposingPlayerId,omitempty"`
}

// GetEvents retrieves the pending fleet events visible to the player.
func (c *Client) GetEvents(ctx context.Context) ([]fleet.Event, error) {
	var dtos []eventDTO
	if err := c.request(ctx, "GET", "/game/index.php?page=ingame&component=eventList&ajax=1", nil, &dtos); err != nil {
		return nil, err
	}
	events := make([]fleet.Event, 0, len(dtos))
	for _, e := range dtos {
		var ships engine.Fleet
		if e.Ships != nil {
			ships = shipsFromDTO(e.Ships)
		}
		events = append(events, fleet.Event{
			ID:               e.ID,
			Origin:           coordinates.New(e.OriginGalaxy, e.OriginSystem, e.OriginPosition, coordinates.BodyType(e.OriginType)),
			Destination:      coordinates.New(e.DestGalaxy, e.DestSystem, e.DestPosition, coordinates.BodyType(e.DestType)),
			ArrivalTime:      e.ArrivalTime,
			Mission:          fleet.Mission(e.Mission),
			ReturnFlight:     e.ReturnFlight,
			Ships:            ships,
			OpposingPlayerID: e.OpposingPlayerID,
		})
	}
	return events, nil
}

type movementFleetDTO struct {
	ID            string         `json:"id"`
	OriginGalaxy  int            `json:"originGalaxy"`
	OriginSystem  int            `json:"originSystem"`
	OriginPos     int            `json:"originPosition"`
	OriginType    string         `json:"originType"`
	DestGalaxy    int            `json:"destGalaxy"`
	DestSystem    int            `json:"destSystem"`
	DestPos       int            `json:"destPosition"`
	DestType      string         `json:"destType"`
	DepartureTime int64          `json:"departureTime"`
	ArrivalTime   int64          `json:"arrivalTime"`
	Mission       string         `json:"mission"`
	ReturnFlight  bool           `json:"returnFlight"`
	Ships         map[string]int `json:"ships"`
	Metal         int            `json:"metal"`
	Crystal       int            `json:"crystal"`
	Deuterium     int            `json:"deuterium"`
	Holding       bool           `json:"holding"`
	HoldingSecs   int            `json:"holdingDuration"`
}

type movementDTO struct {
	Fleets    []movementFleetDTO `json:"fleets"`
	Timestamp int64              `json:"timestamp"`
}

// GetFleetMovement returns the player's own fleets. When returnFleetID is
// non-empty, it first issues a recall command for that fleet.
func (c *Client) GetFleetMovement(ctx context.Context, returnFleetID string) (domremote.Movement, error) {
	if returnFleetID != "" {
		recallPath := fmt.Sprintf("/game/index.php?page=ingame&component=movement&return=%s", returnFleetID)
		if err := c.request(ctx, "POST", recallPath, nil, nil); err != nil {
			return domremote.Movement{}, err
		}
	}

	var dto movementDTO
	if err := c.request(ctx, "GET", "/game/index.php?page=ingame&component=movement", nil, &dto); err != nil {
		return domremote.Movement{}, err
	}

	fleets := make([]fleet.Movement, 0, len(dto.Fleets))
	for _, m := range dto.Fleets {
		fleets = append(fleets, fleet.Movement{
			ID:             m.ID,
			Origin:         coordinates.New(m.OriginGalaxy, m.OriginSystem, m.OriginPos, coordinates.BodyType(m.OriginType)),
			Destination:    coordinates.New(m.DestGalaxy, m.DestSystem, m.DestPos, coordinates.BodyType(m.DestType)),
			DepartureTime:  m.DepartureTime,
			ArrivalTime:    m.ArrivalTime,
			Mission:        fleet.Mission(m.Mission),
			ReturnFlight:   m.ReturnFlight,
			Ships:          shipsFromDTO(m.Ships),
			Cargo:           fleet.Resources{Metal: m.Metal, Crystal: m.Crystal, Deuterium: m.Deuterium},
			Holding:         m.Holding,
			HoldingDuration: m.HoldingSecs,
		})
	}
	return domremote.Movement{Fleets: fleets, Timestamp: dto.Timestamp}, nil
}

type dispatchDTO struct {
	Ships          map[string]int `json:"ships"`
	FreeFleetSlots int            `json:"freeFleetSlots"`
	Token          string         `json:"token"`
	Timestamp      int64          `json:"timestamp"`
}

// GetFleetDispatch must immediately precede SendFleet: its token is
// single-use and its validity window closes quickly.
func (c *Client) GetFleetDispatch(ctx context.Context, planet coordinates.Coordinates) (domremote.FleetDispatch, error) {
	path := fmt.Sprintf("/game/index.php?page=ingame&component=fleetdispatch&cp=%s", planetParam(planet))
	var dto dispatchDTO
	if err := c.request(ctx, "GET", path, nil, &dto); err != nil {
		return domremote.FleetDispatch{}, err
	}
	return domremote.FleetDispatch{
		Ships:          shipsFromDTO(dto.Ships),
		FreeFleetSlots: dto.FreeFleetSlots,
		Token:          dto.Token,
		Timestamp:      dto.Timestamp,
	}, nil
}

type galaxyTileDTO struct {
	Position     int `json:"position"`
	DebrisMetal  int `json:"debrisMetal"`
	DebrisCrystal int `json:"debrisCrystal"`
}

type galaxyDTO struct {
	Tiles []galaxyTileDTO `json:"tiles"`
}

// GetGalaxy retrieves one galaxy/system page's tile contents, including
// expedition-debris amounts at position 16.
func (c *Client) GetGalaxy(ctx context.Context, galaxy, system int) (domremote.Galaxy, error) {
	path := fmt.Sprintf("/game/index.php?page=ingame&component=galaxyContent&galaxy=%d&system=%d", galaxy, system)
	var dto galaxyDTO
	if err := c.request(ctx, "GET", path, nil, &dto); err != nil {
		return domremote.Galaxy{}, err
	}
	tiles := make([]domremote.GalaxyTile, 0, len(dto.Tiles))
	for _, t := range dto.Tiles {
		tiles = append(tiles, domremote.GalaxyTile{
			Position: t.Position,
			ExpeditionDebris: fleet.Resources{
				Metal:   t.DebrisMetal,
				Crystal: t.DebrisCrystal,
			},
		})
	}
	return domremote.Galaxy{Tiles: tiles}, nil
}

type sendFleetRequestDTO struct {
	Galaxy          int            `json:"galaxy"`
	System          int            `json:"system"`
	Position        int            `json:"position"`
	Type            string         `json:"type"`
	Mission         int            `json:"mission"`
	Ships           map[string]int `json:"ships"`
	SpeedPercentage int            `json:"speed"`
	Metal           int            `json:"metal"`
	Crystal         int            `json:"crystal"`
	Deuterium       int            `json:"deuterium"`
	HoldingSeconds  int            `json:"holdingTime,omitempty"`
	Token           string         `json:"token"`
}

type sendFleetResponseDTO struct {
	Success bool `json:"success"`
}

// SendFleet does not provide idempotency; callers verify success by matching
// the subsequent movement list.
func (c *Client) SendFleet(ctx context.Context, req domremote.SendFleetRequest) (bool, error) {
	body := sendFleetRequestDTO{
		Galaxy:          req.Destination.Galaxy,
		System:          req.Destination.System,
		Position:        req.Destination.Position,
		Type:            string(req.Destination.Type),
		Mission:         missionCode(req.Mission),
		Ships:           shipsToDTO(req.Ships),
		SpeedPercentage: req.SpeedPercentage,
		HoldingSeconds:  req.HoldingSeconds,
		Token:           req.Token,
	}
	if req.Resources != nil {
		body.Metal = req.Resources.Metal
		body.Crystal = req.Resources.Crystal
		body.Deuterium = req.Resources.Deuterium
	}

	path := fmt.Sprintf("/game/index.php?page=ingame&component=fleetdispatch&action=sendFleet&cp=%s", planetParam(req.Origin))
	var resp sendFleetResponseDTO
	if err := c.request(ctx, "POST", path, body, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func planetParam(c coordinates.Coordinates) string {
	return fmt.Sprintf("%d:%d:%d", c.Galaxy, c.System, c.Position)
}

func shipsFromDTO(m map[string]int) engine.Fleet {
	out := make(engine.Fleet, len(m))
	for k, v := range m {
		out[engine.ShipKind(k)] = v
	}
	return out
}

func shipsToDTO(f engine.Fleet) map[string]int {
	out := make(map[string]int, len(f))
	for k, v := range f {
		out[string(k)] = v
	}
	return out
}

// missionCode maps the domain Mission to OGame's numeric mission id.
func missionCode(m fleet.Mission) int {
	switch m {
	case fleet.Attack:
		return 1
	case fleet.ACSAttack:
		return 2
	case fleet.Transport:
		return 3
	case fleet.Deployment:
		return 4
	case fleet.Defend:
		return 5
	case fleet.Espionage:
		return 6
	case fleet.Colonization:
		return 7
	case fleet.Harvest:
		return 8
	case fleet.Destroy:
		return 9
	case fleet.Missile:
		return 10
	case fleet.Expedition:
		return 15
	case fleet.Trade:
		return 16
	default:
		return 0
	}
}

// retryableError marks an error that should trigger a retry.
type retryableError struct {
	message    string
	retryAfter time.Duration
}

func (e *retryableError) Error() string { return e.message }

// request performs one HTTP round trip with rate limiting, a minimum
// inter-request delay, exponential-backoff retries, and circuit-breaker
// protection wrapping the whole retry loop (it opens only once every retry
// has failed).
func (c *Client) request(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var lastErr error
	err := c.circuitBreaker.Call(func() error {
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter error: %w", err)
			}
			c.waitMinDelay()

			var reqBody io.Reader
			if body != nil {
				jsonData, err := json.Marshal(body)
				if err != nil {
					return fmt.Errorf("failed to marshal request body: %w", err)
				}
				reqBody = bytes.NewBuffer(jsonData)
			}

			req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(&http.Cookie{Name: "PHPSESSID", Value: c.sessionCookie})

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = &retryableError{message: fmt.Errorf("network error: %w", err).Error()}
				if attempt >= c.maxRetries {
					break
				}
				if ctx.Err() != nil {
					return fmt.Errorf("context cancelled: %w", ctx.Err())
				}
				c.clock.Sleep(c.backoffBase * time.Duration(1<<attempt))
				continue
			}

			respBody, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if retryable, retryAfter := retryableStatus(resp); retryable {
				lastErr = &retryableError{message: fmt.Sprintf("retryable status %d", resp.StatusCode), retryAfter: retryAfter}
				if attempt >= c.maxRetries {
					break
				}
				if ctx.Err() != nil {
					return fmt.Errorf("context cancelled: %w", ctx.Err())
				}
				delay := c.backoffBase * time.Duration(1<<attempt)
				if retryAfter > 0 {
					delay = retryAfter
				}
				c.clock.Sleep(delay)
				continue
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("remote error (status %d): %s", resp.StatusCode, string(respBody))
			}

			if result != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("failed to unmarshal response: %w", err)
				}
			}
			return nil
		}

		if lastErr != nil {
			return shared.NewTransientError(fmt.Errorf("max retries exceeded: %w", lastErr))
		}
		return shared.NewTransientError(fmt.Errorf("max retries exceeded"))
	})

	if err == ErrCircuitOpen {
		return shared.NewTransientError(fmt.Errorf("circuit breaker open: %w", err))
	}
	return err
}

func (c *Client) waitMinDelay() {
	if c.minDelay <= 0 {
		return
	}
	elapsed := c.clock.Now().Sub(c.lastRequest)
	if elapsed < c.minDelay {
		c.clock.Sleep(c.minDelay - elapsed)
	}
	c.lastRequest = c.clock.Now()
}

func retryableStatus(resp *http.Response) (bool, time.Duration) {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		var retryAfter time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return true, retryAfter
	case resp.StatusCode == http.StatusServiceUnavailable:
		return true, 0
	case resp.StatusCode >= 500:
		return true, 0
	default:
		return false, 0
	}
}
