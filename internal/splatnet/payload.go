package splatnet

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/splat3api/splatsync/internal/domain"
)

var validate = validator.New()

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message string `json:"message"`
}

func joinErrors(errs []GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// X ranking

type Image struct {
	URL string `json:"url"`
}

type SubWeapon struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image *Image `json:"image"`
}

type RawWeapon struct {
	ID               string     `json:"id"`
	Name             string     `json:"name" validate:"required"`
	Image            *Image     `json:"image"`
	Image3D          *Image     `json:"image3d"`
	Image2D          *Image     `json:"image2d"`
	Image3DThumbnail *Image     `json:"image3dThumbnail"`
	Image2DThumbnail *Image     `json:"image2dThumbnail"`
	SubWeapon        *SubWeapon `json:"subWeapon"`
	SpecialWeapon    *SubWeapon `json:"specialWeapon"`
}

// XRankingPlayer is one leaderboard node exactly as upstream sends it.
// ID, Byname and Nameplate identify the account and never leave this package
// unredacted.
type XRankingPlayer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name" validate:"required"`
	NameID    string         `json:"nameId"`
	Rank      int            `json:"rank" validate:"gt=0"`
	RankDiff  *string        `json:"rankDiff"`
	XPower    float64        `json:"xPower"`
	Weapon    RawWeapon      `json:"weapon"`
	WeaponTop bool           `json:"weaponTop"`
	Byname    string         `json:"byname"`
	Nameplate map[string]any `json:"nameplate"`
	Typename  string         `json:"__typename"`
}

type XRankingEdge struct {
	Cursor string         `json:"cursor"`
	Node   XRankingPlayer `json:"node"`
}

type PageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// XRankingConnection is one page of a mode leaderboard.
type XRankingConnection struct {
	Edges    []XRankingEdge `json:"edges" validate:"dive"`
	PageInfo PageInfo       `json:"pageInfo"`
}

// Players returns the page nodes in page order.
func (c XRankingConnection) Players() []XRankingPlayer {
	out := make([]XRankingPlayer, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

// Cursor returns the end cursor, empty when upstream sent null.
func (c XRankingConnection) Cursor() string {
	if c.PageInfo.EndCursor == nil {
		return ""
	}
	return *c.PageInfo.EndCursor
}

type xRankingNode struct {
	ID        string              `json:"id"`
	Area      *XRankingConnection `json:"xRankingAr"`
	Rainmaker *XRankingConnection `json:"xRankingGl"`
	Clam      *XRankingConnection `json:"xRankingCl"`
	Tower     *XRankingConnection `json:"xRankingLf"`
}

func (n *xRankingNode) connection(m domain.Mode) *XRankingConnection {
	switch m {
	case domain.ModeArea:
		return n.Area
	case domain.ModeRainmaker:
		return n.Rainmaker
	case domain.ModeClam:
		return n.Clam
	case domain.ModeTower:
		return n.Tower
	default:
		return nil
	}
}

type xRankingResponse struct {
	Data struct {
		Node *xRankingNode `json:"node"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// DecodeXRankingPage decodes one DetailTabViewXRanking*RefetchQuery response.
// A null node or a missing mode connection yields domain.ErrDatasetUnavailable.
func DecodeXRankingPage(mode domain.Mode, raw []byte) (XRankingConnection, error) {
	var resp xRankingResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return XRankingConnection{}, fmt.Errorf("%w: decode x ranking page: %w", domain.ErrMalformedPayload, err)
	}
	if resp.Data.Node == nil {
		return XRankingConnection{}, fmt.Errorf("%w: x ranking node is null (%s)", domain.ErrDatasetUnavailable, joinErrors(resp.Errors))
	}
	conn := resp.Data.Node.connection(mode)
	if conn == nil {
		return XRankingConnection{}, fmt.Errorf("%w: no %s connection in x ranking node", domain.ErrDatasetUnavailable, mode)
	}
	if err := validate.Struct(conn); err != nil {
		return XRankingConnection{}, fmt.Errorf("%w: invalid %s page: %w", domain.ErrMalformedPayload, mode, err)
	}
	return *conn, nil
}

// Seasons

type RawSeason struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime"`
}

func (s RawSeason) toDomain() domain.SeasonInfo {
	return domain.SeasonInfo{ID: s.ID, Name: s.Name, StartTime: s.StartTime, EndTime: s.EndTime}
}

type seasonResponse struct {
	Data struct {
		XRanking *struct {
			CurrentSeason *RawSeason `json:"currentSeason"`
			PastSeasons   *struct {
				Nodes []RawSeason `json:"nodes" validate:"dive"`
			} `json:"pastSeasons"`
		} `json:"xRanking"`
	} `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// DecodeSeasons decodes an XRankingQuery response.
func DecodeSeasons(raw []byte) (domain.Seasons, error) {
	var resp seasonResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return domain.Seasons{}, fmt.Errorf("%w: decode season info: %w", domain.ErrMalformedPayload, err)
	}
	xr := resp.Data.XRanking
	if xr == nil || xr.CurrentSeason == nil || xr.PastSeasons == nil {
		return domain.Seasons{}, fmt.Errorf("%w: season info is empty (%s)", domain.ErrDatasetUnavailable, joinErrors(resp.Errors))
	}
	if err := validate.Struct(xr.CurrentSeason); err != nil {
		return domain.Seasons{}, fmt.Errorf("%w: invalid current season: %w", domain.ErrMalformedPayload, err)
	}
	if err := validate.Struct(xr.PastSeasons); err != nil {
		return domain.Seasons{}, fmt.Errorf("%w: invalid past seasons: %w", domain.ErrMalformedPayload, err)
	}

	out := domain.Seasons{
		Current: xr.CurrentSeason.toDomain(),
		Past:    make([]domain.SeasonInfo, 0, len(xr.PastSeasons.Nodes)),
	}
	for _, s := range xr.PastSeasons.Nodes {
		out.Past = append(out.Past, s.toDomain())
	}
	return out, nil
}

// Schedules

type RawStage struct {
	VsStageID int    `json:"vsStageId"`
	Name      string `json:"name" validate:"required"`
	ID        string `json:"id"`
	Image     *Image `json:"image"`
}

type RawRule struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
	Rule string `json:"rule"`
}

// VsMatchSetting is shared by regular, bankara, X and league settings.
// Mode is only set for bankara ("CHALLENGE" or "OPEN").
type VsMatchSetting struct {
	VsStages []RawStage `json:"vsStages" validate:"dive"`
	VsRule   RawRule    `json:"vsRule"`
	Mode     string     `json:"mode"`
	Typename string     `json:"__typename"`
}

type RegularNode struct {
	StartTime time.Time       `json:"startTime" validate:"required"`
	EndTime   time.Time       `json:"endTime" validate:"required"`
	Setting   *VsMatchSetting `json:"regularMatchSetting"`
}

type BankaraNode struct {
	StartTime time.Time        `json:"startTime" validate:"required"`
	EndTime   time.Time        `json:"endTime" validate:"required"`
	Settings  []VsMatchSetting `json:"bankaraMatchSettings" validate:"omitempty,dive"`
}

type XNode struct {
	StartTime time.Time       `json:"startTime" validate:"required"`
	EndTime   time.Time       `json:"endTime" validate:"required"`
	Setting   *VsMatchSetting `json:"xMatchSetting"`
}

type LeagueNode struct {
	StartTime time.Time       `json:"startTime" validate:"required"`
	EndTime   time.Time       `json:"endTime" validate:"required"`
	Setting   *VsMatchSetting `json:"leagueMatchSetting"`
}

type CoopStage struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

type CoopWeapon struct {
	Name  string `json:"name" validate:"required"`
	Image *Image `json:"image"`
}

type CoopMatchSetting struct {
	CoopStage CoopStage    `json:"coopStage"`
	Weapons   []CoopWeapon `json:"weapons" validate:"dive"`
}

type CoopNode struct {
	StartTime time.Time         `json:"startTime" validate:"required"`
	EndTime   time.Time         `json:"endTime" validate:"required"`
	Setting   *CoopMatchSetting `json:"setting"`
}

type Nodes[T any] struct {
	Nodes []T `json:"nodes" validate:"dive"`
}

// StageSchedule is the data object of a StageScheduleQuery response.
type StageSchedule struct {
	RegularSchedules     Nodes[RegularNode] `json:"regularSchedules"`
	BankaraSchedules     Nodes[BankaraNode] `json:"bankaraSchedules"`
	XSchedules           Nodes[XNode]       `json:"xSchedules"`
	LeagueSchedules      Nodes[LeagueNode]  `json:"leagueSchedules"`
	CoopGroupingSchedule struct {
		RegularSchedules Nodes[CoopNode] `json:"regularSchedules"`
	} `json:"coopGroupingSchedule"`
}

type stageScheduleResponse struct {
	Data   *StageSchedule `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// DecodeStageSchedule decodes and validates a StageScheduleQuery response.
func DecodeStageSchedule(raw []byte) (StageSchedule, error) {
	var resp stageScheduleResponse
	if err := sonic.Unmarshal(raw, &resp); err != nil {
		return StageSchedule{}, fmt.Errorf("%w: decode stage schedule: %w", domain.ErrMalformedPayload, err)
	}
	if resp.Data == nil {
		return StageSchedule{}, fmt.Errorf("%w: stage schedule data is null (%s)", domain.ErrDatasetUnavailable, joinErrors(resp.Errors))
	}
	if err := validate.Struct(resp.Data); err != nil {
		return StageSchedule{}, fmt.Errorf("%w: invalid stage schedule: %w", domain.ErrMalformedPayload, err)
	}
	return *resp.Data, nil
}
