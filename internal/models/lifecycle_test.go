package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(v))
}

func item(requested, approved, issued, received string) RequestItem {
	it := RequestItem{
		ID:           "item-" + requested,
		MaterialID:   "mat-" + requested,
		UnitID:       "unit-1",
		QtyRequested: dec(requested),
		QtyIssued:    dec(issued),
		QtyReceived:  dec(received),
	}
	if approved != "" {
		it.QtyApproved = nullDec(approved)
	}
	return it
}

func TestOutstandingIssue(t *testing.T) {
	require.True(t, OutstandingIssue(item("100", "", "0", "0")).IsZero())
	require.True(t, OutstandingIssue(item("100", "80", "50", "0")).Equal(dec("30")))
	require.True(t, OutstandingIssue(item("100", "80", "80", "0")).IsZero())
}

func TestOutstandingReceipt(t *testing.T) {
	require.True(t, OutstandingReceipt(item("100", "80", "50", "0")).Equal(dec("50")))
	require.True(t, OutstandingReceipt(item("100", "80", "50", "50")).IsZero())
}

func TestDeriveStatusFulfillment(t *testing.T) {
	cases := []struct {
		name  string
		prior RequestStatus
		items []RequestItem
		want  RequestStatus
	}{
		{
			name:  "nothing issued stays approved",
			prior: StatusApproved,
			items: []RequestItem{item("100", "80", "0", "0")},
			want:  StatusApproved,
		},
		{
			name:  "partial issuance",
			prior: StatusApproved,
			items: []RequestItem{item("100", "80", "50", "0")},
			want:  StatusPartiallyIssued,
		},
		{
			name:  "fully issued not received",
			prior: StatusPartiallyIssued,
			items: []RequestItem{item("100", "80", "80", "0")},
			want:  StatusIssued,
		},
		{
			name:  "fully issued fully received closes",
			prior: StatusIssued,
			items: []RequestItem{item("100", "80", "80", "80")},
			want:  StatusClosed,
		},
		{
			name:  "received but more approved outstanding",
			prior: StatusPartiallyIssued,
			items: []RequestItem{item("100", "80", "50", "50")},
			want:  StatusPartiallyIssued,
		},
		{
			name:  "mixed items one unissued",
			prior: StatusPartiallyIssued,
			items: []RequestItem{item("100", "80", "80", "80"), item("10", "5", "0", "0")},
			want:  StatusPartiallyIssued,
		},
		{
			name:  "review state untouched",
			prior: StatusDSEReview,
			items: []RequestItem{item("100", "", "0", "0")},
			want:  StatusDSEReview,
		},
		{
			name:  "rejected untouched",
			prior: StatusRejected,
			items: []RequestItem{item("100", "80", "0", "0")},
			want:  StatusRejected,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.prior, tc.items))
		})
	}
}

func TestDeriveStatusIdempotent(t *testing.T) {
	items := []RequestItem{item("100", "80", "50", "20"), item("40", "40", "40", "40")}
	first := DeriveStatus(StatusPartiallyIssued, items)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, DeriveStatus(first, items))
	}
}

func TestRouteReviewStatus(t *testing.T) {
	require.Equal(t, StatusDSEReview, RouteReviewStatus(true, true))
	require.Equal(t, StatusPadiriReview, RouteReviewStatus(false, true))
	require.Equal(t, StatusSubmitted, RouteReviewStatus(false, false))
}

func TestCanReview(t *testing.T) {
	require.True(t, CanReview(StatusDSEReview, LevelDSE))
	require.True(t, CanReview(StatusSubmitted, LevelPadiri))
	require.True(t, CanReview(StatusPadiriReview, LevelPadiri))
	require.False(t, CanReview(StatusPadiriReview, LevelDSE))
	require.False(t, CanReview(StatusApproved, LevelPadiri))
	require.False(t, CanReview(StatusRejected, LevelDSE))
}

func TestStatusGates(t *testing.T) {
	require.True(t, CanIssue(StatusApproved))
	require.True(t, CanIssue(StatusPartiallyIssued))
	require.False(t, CanIssue(StatusIssued))
	require.False(t, CanIssue(StatusDSEReview))

	require.True(t, CanReceive(StatusIssued))
	require.True(t, CanReceive(StatusPartiallyIssued))
	require.False(t, CanReceive(StatusApproved))

	require.True(t, CanModify(StatusPadiriReview))
	require.True(t, CanModify(StatusApproved))
	require.True(t, CanModify(StatusPartiallyIssued))
	require.False(t, CanModify(StatusSubmitted))
	require.False(t, CanModify(StatusDSEReview))
	require.False(t, CanModify(StatusIssued))
	require.False(t, CanModify(StatusClosed))
}

func TestResolveApprovalGrantsDefaults(t *testing.T) {
	approved := item("100", "80", "0", "0")
	approved.ID = "item-1"
	pending := item("40", "", "0", "0")
	pending.ID = "item-2"

	grants, err := ResolveApprovalGrants([]RequestItem{approved, pending}, nil, true)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "item-2", grants[0].ItemID)
	require.True(t, grants[0].QtyApproved.Equal(dec("40")))
}

func TestResolveApprovalGrantsOverrideWins(t *testing.T) {
	pending := item("100", "", "0", "0")
	pending.ID = "item-1"

	grants, err := ResolveApprovalGrants([]RequestItem{pending}, []ApprovalGrant{
		{ItemID: "item-1", QtyApproved: dec("60")},
	}, true)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.True(t, grants[0].QtyApproved.Equal(dec("60")))
}

func TestResolveApprovalGrantsRejections(t *testing.T) {
	issued := item("100", "80", "50", "0")
	issued.ID = "item-1"
	items := []RequestItem{issued}

	_, err := ResolveApprovalGrants(items, []ApprovalGrant{{ItemID: "ghost", QtyApproved: dec("10")}}, false)
	require.ErrorIs(t, err, ErrUnknownItem)

	_, err = ResolveApprovalGrants(items, []ApprovalGrant{
		{ItemID: "item-1", QtyApproved: dec("60")},
		{ItemID: "item-1", QtyApproved: dec("70")},
	}, false)
	require.ErrorIs(t, err, ErrDuplicateItemLine)

	_, err = ResolveApprovalGrants(items, []ApprovalGrant{{ItemID: "item-1", QtyApproved: dec("-1")}}, false)
	require.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = ResolveApprovalGrants(items, []ApprovalGrant{{ItemID: "item-1", QtyApproved: dec("40")}}, false)
	require.ErrorIs(t, err, ErrApprovedBelowIssued)
}

func TestBuildModifiedItemsAddAndEdit(t *testing.T) {
	existing := item("100", "80", "0", "0")
	existing.ID = "item-1"
	existing.MaterialID = "cement"

	newQty := dec("120")
	approved := dec("90")
	result, err := BuildModifiedItems([]RequestItem{existing}, ModificationCommand{
		Reason: "site scope grew",
		Edits: []ModificationEdit{{
			ItemID:       "item-1",
			QtyRequested: &newQty,
			QtyApproved:  &approved,
		}},
		Adds: []ModificationAdd{{
			MaterialID:   "rebar",
			UnitID:       "unit-1",
			QtyRequested: dec("40"),
		}},
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.True(t, result[0].QtyRequested.Equal(dec("120")))
	require.True(t, result[0].QtyApproved.Decimal.Equal(dec("90")))
	require.Equal(t, "rebar", result[1].MaterialID)
}

func TestBuildModifiedItemsDuplicateMaterial(t *testing.T) {
	existing := item("100", "80", "0", "0")
	existing.ID = "item-1"
	existing.MaterialID = "cement"

	_, err := BuildModifiedItems([]RequestItem{existing}, ModificationCommand{
		Adds: []ModificationAdd{{MaterialID: "cement", UnitID: "unit-1", QtyRequested: dec("5")}},
	})
	require.ErrorIs(t, err, ErrDuplicateMaterialLine)
	require.Contains(t, err.Error(), "cement")
}

func TestBuildModifiedItemsIssuedLocked(t *testing.T) {
	issued := item("100", "80", "50", "0")
	issued.ID = "item-1"

	_, err := BuildModifiedItems([]RequestItem{issued}, ModificationCommand{
		Removals: []string{"item-1"},
	})
	require.ErrorIs(t, err, ErrItemHasIssuance)

	other := "sand"
	_, err = BuildModifiedItems([]RequestItem{issued}, ModificationCommand{
		Edits: []ModificationEdit{{ItemID: "item-1", MaterialID: &other}},
	})
	require.ErrorIs(t, err, ErrItemHasIssuance)

	// Raising the approved quantity on an issued item is allowed.
	raised := dec("90")
	result, err := BuildModifiedItems([]RequestItem{issued}, ModificationCommand{
		Edits: []ModificationEdit{{ItemID: "item-1", QtyApproved: &raised}},
	})
	require.NoError(t, err)
	require.True(t, result[0].QtyApproved.Decimal.Equal(dec("90")))

	// Dropping it below the issued amount is not.
	below := dec("40")
	_, err = BuildModifiedItems([]RequestItem{issued}, ModificationCommand{
		Edits: []ModificationEdit{{ItemID: "item-1", QtyApproved: &below}},
	})
	require.ErrorIs(t, err, ErrApprovedBelowIssued)
}

func TestBuildModifiedItemsUnknownItem(t *testing.T) {
	_, err := BuildModifiedItems(nil, ModificationCommand{Removals: []string{"ghost"}})
	require.ErrorIs(t, err, ErrUnknownItem)
}

func TestLowStockBreached(t *testing.T) {
	require.True(t, LowStockBreached(dec("40"), nullDec("50")))
	require.True(t, LowStockBreached(dec("50"), nullDec("50")))
	require.False(t, LowStockBreached(dec("51"), nullDec("50")))
	require.False(t, LowStockBreached(dec("0"), decimal.NullDecimal{}))
}
