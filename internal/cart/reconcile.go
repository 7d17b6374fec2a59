package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// MergedMessage is the success notice when the server sent no text.
const MergedMessage = "Merged guest cart into user cart!"

// Status is how a trigger was resolved.
type Status string

// Trigger statuses.
const (
	StatusMerged  Status = "merged"
	StatusNothing Status = "nothing-to-merge"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusPending means the caller stopped waiting while the merge it
	// joined was still running.
	StatusPending Status = "pending"
)

// Outcome describes what a trigger did.
type Outcome struct {
	Status  Status        `json:"status"`
	Trigger types.Trigger `json:"trigger"`
	Token   string        `json:"token,omitempty"`
	Message string        `json:"message,omitempty"`

	// Shared is true when the caller joined a merge another trigger started.
	Shared bool `json:"shared,omitempty"`
	// Recovered is true when the token was minted from local guest state
	// and has not been merged yet.
	Recovered bool `json:"recovered,omitempty"`
}

// Reconciler merges the guest cart into the user cart. Every trigger goes
// through Trigger; concurrent triggers for one token share a single merge
// request, and a token this reconciler already merged is never sent again.
type Reconciler struct {
	svc *Service

	flights singleflight.Group

	mu     sync.Mutex
	state  types.MergeState
	merged map[string]bool
}

// NewReconciler returns an idle Reconciler over svc.
func NewReconciler(svc *Service) *Reconciler {
	return &Reconciler{svc: svc, merged: make(map[string]bool)}
}

// State returns the current merge state.
func (r *Reconciler) State() types.MergeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Trigger merges the guest cart if the session is authenticated and a
// guest token is stored or can be recovered. It returns a failed outcome
// with the error when the merge request fails; the token and guest cart
// are then kept for the next trigger.
//
// Cancelling ctx stops the wait, not the merge.
func (r *Reconciler) Trigger(ctx context.Context, trigger types.Trigger) (Outcome, error) {
	log := r.svc.logger.With(zap.String("trigger", string(trigger)))
	out := Outcome{Trigger: trigger}

	if !r.svc.session.IsAuthenticated() {
		out.Status = StatusSkipped
		return out, nil
	}

	token, recovered, err := r.resolveToken()
	if err != nil {
		log.Warn("guest token unreadable, skipping merge", zap.Error(err))
		out.Status = StatusSkipped
		return out, nil
	}
	out.Token = token
	if token == "" || r.alreadyMerged(token) {
		out.Status = StatusNothing
		return out, nil
	}

	ch := r.flights.DoChan(token, func() (any, error) {
		return r.merge(context.WithoutCancel(ctx), log, token, recovered)
	})
	select {
	case <-ctx.Done():
		out.Status = StatusPending
		out.Recovered = recovered
		return out, ctx.Err()
	case res := <-ch:
		got := res.Val.(Outcome)
		got.Trigger = trigger
		got.Shared = res.Shared
		return got, res.Err
	}
}

// resolveToken reads the stored token, minting one from local guest state
// when needed. Serialized so concurrent triggers never mint two tokens.
func (r *Reconciler) resolveToken() (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.svc.tokens.Recover(r.svc.state.Guest())
}

func (r *Reconciler) alreadyMerged(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.merged[token]
}

func (r *Reconciler) setState(s types.MergeState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// merge runs once per flight. The merged set is checked again here because
// a trigger can read the token just before the previous flight finished.
func (r *Reconciler) merge(ctx context.Context, log *zap.Logger, token string, recovered bool) (Outcome, error) {
	out := Outcome{Token: token, Recovered: recovered}
	if r.alreadyMerged(token) {
		out.Status = StatusNothing
		return out, nil
	}

	r.setState(types.MergeMerging)
	log.Info("merging guest cart", zap.String("token", token), zap.Bool("recovered", recovered))

	res, err := r.svc.api.MergeCart(ctx, token)
	if err == nil && recovered {
		err = r.readd(ctx)
	}
	if err != nil {
		r.setState(types.MergeFailed)
		log.Warn("guest cart merge failed", zap.String("token", token), zap.Error(err))
		if !errors.Is(err, types.ErrSessionExpired) {
			r.svc.notify(types.NotifyError, "Failed to merge cart: "+types.UserMessage(err))
		}
		out.Status = StatusFailed
		return out, err
	}

	r.mu.Lock()
	r.merged[token] = true
	r.mu.Unlock()

	if _, err := r.svc.tokens.Retire(token); err != nil {
		log.Warn("guest token kept after merge", zap.Error(err))
	}
	r.svc.state.SetGuest(types.EmptyCart())

	if res.HasCart {
		r.svc.state.SetUser(types.NewCart(res.Pets))
	} else if _, err := r.svc.FetchUser(ctx); err != nil {
		log.Warn("user cart reload after merge", zap.Error(err))
	}

	r.setState(types.MergeMerged)
	out.Status = StatusMerged
	out.Message = res.Message
	if out.Message == "" || recovered {
		out.Message = MergedMessage
	}
	r.svc.notify(types.NotifySuccess, out.Message)
	log.Info("guest cart merged", zap.String("token", token))
	return out, nil
}

// readd copies local guest items into the user cart. A recovered token is
// unknown to the server, so the merge call alone moves nothing.
func (r *Reconciler) readd(ctx context.Context) error {
	for _, id := range r.svc.state.Guest().PetIDs() {
		if _, err := r.svc.api.AddToCart(ctx, id, ""); err != nil {
			return fmt.Errorf("re-add pet %d: %w", id, err)
		}
	}
	return nil
}
