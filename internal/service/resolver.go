package service

import (
	"context"
	"sort"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/metrics"
	"github.com/cloo-solutions/rerankd/internal/telemetry"
)

// IdentityResolver maps inbound result payloads onto canonical results.
//
// Two payloads resolve to the same result exactly when their portal, scalar
// attributes, tag set and group set are equal; see domain.IdentityKey.
type IdentityResolver struct {
	txRunner TxRunner
	metrics  *metrics.Metrics
}

func NewIdentityResolver(txRunner TxRunner, m *metrics.Metrics) *IdentityResolver {
	return &IdentityResolver{txRunner: txRunner, metrics: m}
}

// Resolve returns the id of the canonical result for p, creating it together
// with any missing tags and groups in one transaction.
func (r *IdentityResolver) Resolve(ctx context.Context, p domain.ResultPayload) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "IdentityResolver.Resolve", telemetry.SpanAttributes{
		Portal:    p.Portal,
		Operation: "resolve",
	})
	defer span.End()

	if err := domain.ValidateResultPayload(&p); err != nil {
		return 0, err
	}

	var id int64
	err := r.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		id, _, err = r.resolveWith(ctx, repos, p)
		return err
	})
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	return id, nil
}

// Lookup returns the id of the canonical result for p without creating it.
func (r *IdentityResolver) Lookup(ctx context.Context, p domain.ResultPayload) (int64, bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "IdentityResolver.Lookup", telemetry.SpanAttributes{
		Portal:    p.Portal,
		Operation: "lookup",
	})
	defer span.End()

	if err := domain.ValidateResultPayload(&p); err != nil {
		return 0, false, err
	}

	var (
		id    int64
		found bool
	)
	err := r.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		id, found, err = lookupWith(ctx, repos, p)
		return err
	})
	if err != nil {
		span.SetError(err)
		return 0, false, err
	}
	return id, found, nil
}

// GetResult loads a canonical result with its tags and groups.
func (r *IdentityResolver) GetResult(ctx context.Context, id int64) (*domain.Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "IdentityResolver.GetResult", telemetry.SpanAttributes{
		Operation: "get",
	})
	defer span.End()

	var res *domain.Result
	err := r.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		res, err = repos.Results().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveWith is the transaction-scoped get-or-create. The result row, its
// tags, groups and links are written together or not at all.
func (r *IdentityResolver) resolveWith(ctx context.Context, repos TxRepositories, p domain.ResultPayload) (int64, bool, error) {
	res := &domain.Result{
		IdentityKey:   domain.IdentityKey(p),
		ResultPayload: p,
	}

	id, created, err := repos.Results().InsertIfAbsent(ctx, res)
	if err != nil {
		return 0, false, err
	}
	r.metrics.IncResultsResolved(created)
	if !created {
		return id, false, nil
	}

	for _, name := range domain.CanonicalTags(p.Tags) {
		tagID, err := repos.Tags().GetOrCreate(ctx, name, p.Portal)
		if err != nil {
			return 0, false, err
		}
		if err := repos.Tags().Link(ctx, id, tagID); err != nil {
			return 0, false, err
		}
	}

	for _, g := range domain.CanonicalGroups(p.Groups) {
		groupID, err := repos.Groups().GetOrCreate(ctx, g, p.Portal)
		if err != nil {
			return 0, false, err
		}
		if err := repos.Groups().Link(ctx, id, groupID); err != nil {
			return 0, false, err
		}
	}

	return id, true, nil
}

// lookupWith finds the canonical result for p without writing anything. A
// payload naming a tag or group the portal has never seen cannot match, and a
// candidate only matches when its linked tag and group sets are exactly the
// ones p resolves to.
func lookupWith(ctx context.Context, repos TxRepositories, p domain.ResultPayload) (int64, bool, error) {
	var tagIDs []int64
	for _, name := range domain.CanonicalTags(p.Tags) {
		id, found, err := repos.Tags().GetByName(ctx, name, p.Portal)
		if err != nil || !found {
			return 0, false, err
		}
		tagIDs = append(tagIDs, id)
	}

	var groupIDs []int64
	for _, g := range domain.CanonicalGroups(p.Groups) {
		id, found, err := repos.Groups().Get(ctx, g, p.Portal)
		if err != nil || !found {
			return 0, false, err
		}
		groupIDs = append(groupIDs, id)
	}

	id, found, err := repos.Results().FindIDByIdentity(ctx, p.Portal, domain.IdentityKey(p))
	if err != nil || !found {
		return 0, false, err
	}

	tags, err := repos.Tags().ListByResult(ctx, id)
	if err != nil {
		return 0, false, err
	}
	linkedTags := make([]int64, 0, len(tags))
	for _, t := range tags {
		linkedTags = append(linkedTags, t.ID)
	}

	groups, err := repos.Groups().ListByResult(ctx, id)
	if err != nil {
		return 0, false, err
	}
	linkedGroups := make([]int64, 0, len(groups))
	for _, g := range groups {
		linkedGroups = append(linkedGroups, g.ID)
	}

	if !sameIDs(tagIDs, linkedTags) || !sameIDs(groupIDs, linkedGroups) {
		return 0, false, nil
	}
	return id, true, nil
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]int64(nil), a...)
	b = append([]int64(nil), b...)
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
