package thegraph

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"asset-tokenization-kit/internal/domain"
)

// ref is an entity reference.
type ref struct {
	ID string `json:"id"`
}

// Subgraph BigInt/BigDecimal/timestamps arrive as strings.

type wireAsset struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          int    `json:"decimals"`
	TotalSupply       string `json:"totalSupply"`
	Paused            bool   `json:"paused"`
	Creator           *ref   `json:"creator"`
	HolderCount       int    `json:"holderCount"`
	CreationTimestamp string `json:"creationTimestamp"`
	Bond              *struct {
		FaceValue       string `json:"faceValue"`
		MaturityDate    string `json:"maturityDate"`
		UnderlyingAsset *ref   `json:"underlyingAsset"`
		Cap             string `json:"cap"`
		IsMatured       bool   `json:"isMatured"`
		YieldSchedule   *struct {
			ID             string `json:"id"`
			StartDate      string `json:"startDate"`
			EndDate        string `json:"endDate"`
			Rate           string `json:"rate"`
			Interval       string `json:"interval"`
			TotalClaimed   string `json:"totalClaimed"`
			UnclaimedYield string `json:"unclaimedYield"`
		} `json:"yieldSchedule"`
	} `json:"bond"`
	Equity *struct {
		EquityClass    string `json:"equityClass"`
		EquityCategory string `json:"equityCategory"`
	} `json:"equity"`
	Fund *struct {
		FundClass        string `json:"fundClass"`
		FundCategory     string `json:"fundCategory"`
		ManagementFeeBps int    `json:"managementFeeBps"`
	} `json:"fund"`
	Collateral *struct {
		Collateral  string `json:"collateral"`
		Liveness    string `json:"liveness"`
		LastUpdated string `json:"lastUpdated"`
	} `json:"collateral"`
}

func (w *wireAsset) toAsset() domain.Asset {
	a := domain.Asset{
		ID:          w.ID,
		Type:        domain.AssetType(strings.ToLower(w.Type)),
		Name:        w.Name,
		Symbol:      w.Symbol,
		Decimals:    w.Decimals,
		TotalSupply: dec(w.TotalSupply),
		Paused:      w.Paused,
		HolderCount: w.HolderCount,
		CreatedAt:   unixSeconds(w.CreationTimestamp),
	}
	if w.Creator != nil {
		a.Creator = w.Creator.ID
	}
	if b := w.Bond; b != nil {
		a.Bond = &domain.BondDetails{
			FaceValue:    dec(b.FaceValue),
			MaturityDate: unixSeconds(b.MaturityDate),
			Cap:          dec(b.Cap),
			IsMatured:    b.IsMatured,
		}
		if b.UnderlyingAsset != nil {
			a.Bond.UnderlyingAsset = b.UnderlyingAsset.ID
		}
		if y := b.YieldSchedule; y != nil {
			rate, _ := strconv.Atoi(y.Rate)
			interval, _ := strconv.ParseInt(y.Interval, 10, 64)
			a.Bond.YieldSchedule = &domain.YieldSchedule{
				Address:         y.ID,
				StartDate:       unixSeconds(y.StartDate),
				EndDate:         unixSeconds(y.EndDate),
				RateBps:         rate,
				IntervalSeconds: interval,
				TotalClaimed:    dec(y.TotalClaimed),
				UnclaimedYield:  dec(y.UnclaimedYield),
			}
		}
	}
	if e := w.Equity; e != nil {
		a.Equity = &domain.EquityDetails{Class: e.EquityClass, Category: e.EquityCategory}
	}
	if f := w.Fund; f != nil {
		a.Fund = &domain.FundDetails{Class: f.FundClass, Category: f.FundCategory, ManagementFeeBps: f.ManagementFeeBps}
	}
	if c := w.Collateral; c != nil {
		liveness, _ := strconv.ParseInt(c.Liveness, 10, 64)
		a.Collateral = &domain.CollateralDetails{
			Collateral:      dec(c.Collateral),
			LivenessSeconds: liveness,
			LastUpdated:     unixSeconds(c.LastUpdated),
		}
	}
	return a
}

type wireBalance struct {
	Account      ref        `json:"account"`
	Asset        *wireAsset `json:"asset"`
	Value        string     `json:"value"`
	Frozen       string     `json:"frozen"`
	IsBlocked    bool       `json:"isBlocked"`
	LastActivity string     `json:"lastActivity"`
}

func (w *wireBalance) toHolder() domain.Holder {
	h := domain.Holder{
		Account:      w.Account.ID,
		Balance:      dec(w.Value),
		Frozen:       dec(w.Frozen),
		Blocked:      w.IsBlocked,
		LastActivity: unixSeconds(w.LastActivity),
	}
	if w.Asset != nil {
		h.Asset = w.Asset.ID
	}
	return h
}

type wireAirdrop struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Token          ref    `json:"token"`
	Owner          ref    `json:"owner"`
	MerkleRoot     string `json:"merkleRoot"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	TotalClaimed   string `json:"totalClaimed"`
	RecipientCount int    `json:"recipientCount"`
}

func (w *wireAirdrop) toAirdrop() domain.Airdrop {
	return domain.Airdrop{
		Address:      w.ID,
		Type:         domain.AirdropType(strings.ToLower(w.Type)),
		Asset:        w.Token.ID,
		Owner:        w.Owner.ID,
		MerkleRoot:   w.MerkleRoot,
		StartTime:    optionalUnix(w.StartTime),
		EndTime:      optionalUnix(w.EndTime),
		TotalClaimed: dec(w.TotalClaimed),
		Recipients:   w.RecipientCount,
	}
}

func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func unixSeconds(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}

func optionalUnix(s string) *time.Time {
	t := unixSeconds(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
