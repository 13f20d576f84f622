// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

// DefaultMaxPages bounds pagination against sources that never run dry.
const DefaultMaxPages = 1000

// StopReason says why pagination ended.
type StopReason string

const (
	StopEndOfResults StopReason = "end-of-results"
	StopCapReached   StopReason = "cap-reached"
	StopPageCeiling  StopReason = "page-ceiling"
	StopPageError    StopReason = "page-error"
)

// Outcome is the result of paginating one session.
type Outcome struct {
	// Stubs are the accepted stubs in first-seen order, at most sess.Max.
	Stubs []types.ArticleStub

	// Pages is the number of FetchPage calls made.
	Pages int

	Stop StopReason

	// Err is the page failure when Stop is StopPageError.
	Err error
}

// Paginator drives an Adapter until one of its stop conditions fires.
type Paginator struct {
	// MaxPages is the page ceiling; zero means DefaultMaxPages.
	MaxPages int

	// OnTotal is called once per session, when a total is first latched.
	OnTotal func(sess *Session, total int)
}

// Run fetches pages 0, 1, 2, ... from a. After each page it checks, in
// order: no new stubs (end of results), cap reached, page ceiling. A page
// error ends pagination; stubs gathered so far are kept.
func (p Paginator) Run(ctx context.Context, a Adapter, sess *Session) Outcome {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var out Outcome
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			out.Stop, out.Err = StopPageError, err
			return out
		}

		sess.Log.Info().Int("page", page).Msg("getting page")
		res, err := a.FetchPage(ctx, sess, page)
		out.Pages++

		if res.HasTotal && sess.latch(res.Total) && p.OnTotal != nil {
			p.OnTotal(sess, res.Total)
		}

		added := 0
		for _, stub := range res.Stubs {
			if stub.ID == "" || sess.Seen(stub.ID) {
				continue
			}
			sess.markSeen(stub.ID)
			out.Stubs = append(out.Stubs, stub)
			added++
		}

		if err != nil {
			sess.Log.Warn().Err(err).Int("page", page).Msg("page failed, keeping gathered results")
			out.Stop, out.Err = StopPageError, err
			break
		}
		if added == 0 {
			out.Stop = StopEndOfResults
			break
		}
		if !sess.Unlimited() && len(out.Stubs) >= sess.Max {
			out.Stop = StopCapReached
			break
		}
		if out.Pages >= maxPages {
			out.Stop = StopPageCeiling
			break
		}
	}

	if !sess.Unlimited() && len(out.Stubs) > sess.Max {
		out.Stubs = out.Stubs[:sess.Max]
	}
	sess.Log.Debug().
		Int("results", len(out.Stubs)).
		Int("pages", out.Pages).
		Str("stop", string(out.Stop)).
		Msg("pagination finished")
	return out
}
