package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/pawcart/internal/api"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// API is the subset of the cart endpoints the service calls.
type API interface {
	GetUserCart(ctx context.Context) ([]types.Pet, error)
	AddToCart(ctx context.Context, petID int64, token string) (api.AddResult, error)
	GetGuestCart(ctx context.Context, token string) (api.GuestCart, error)
	RemoveFromGuestCart(ctx context.Context, petID int64, token string) (api.GuestCart, error)
	RemoveFromUserCart(ctx context.Context, petID int64) ([]types.Pet, error)
	ClearUserCart(ctx context.Context) error
	MergeCart(ctx context.Context, token string) (api.MergeResult, error)
}

// Session reports whether requests are authenticated.
type Session interface {
	IsAuthenticated() bool
}

// Service performs cart operations against the API and keeps State in step
// with the server. Local state changes only from server responses.
type Service struct {
	api      API
	session  Session
	tokens   *Tokens
	state    *State
	notifier types.Notifier
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets where user-facing notifications go.
func WithNotifier(n types.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a Service.
func NewService(cartAPI API, session Session, tokens *Tokens, state *State, opts ...Option) *Service {
	s := &Service{
		api:      cartAPI,
		session:  session,
		tokens:   tokens,
		state:    state,
		notifier: discard{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens returns the guest token manager.
func (s *Service) Tokens() *Tokens { return s.tokens }

// State returns the local cart state.
func (s *Service) State() *State { return s.state }

// Active returns the cart the user is working with: the user cart when
// authenticated, the guest cart otherwise.
func (s *Service) Active() (types.Cart, types.CartKind) {
	if s.session.IsAuthenticated() {
		return s.state.User(), types.CartUser
	}
	return s.state.Guest(), types.CartGuest
}

// Add puts a pet in the active cart. Guest adds send the stored token, or
// none so the server mints one, and store the token the server returns.
func (s *Service) Add(ctx context.Context, petID int64) (types.Cart, types.CartKind, error) {
	var token string
	if !s.session.IsAuthenticated() {
		t, err := s.tokens.Current()
		if err != nil {
			s.logger.Warn("guest token unavailable, server will mint one", zap.Error(err))
		}
		token = t
	}

	res, err := s.api.AddToCart(ctx, petID, token)
	if err != nil {
		s.fail("Failed to add pet to cart", err)
		return types.Cart{}, "", err
	}

	if !res.IsGuest() {
		c := types.NewCart(res.Pets)
		s.state.SetUser(c)
		s.notify(types.NotifySuccess, "Pet added to cart!")
		return c, types.CartUser, nil
	}

	if res.Token != token {
		if err := s.tokens.Persist(res.Token); err != nil {
			s.logger.Warn("guest token not persisted", zap.Error(err))
		}
		s.logger.Info("guest cart token issued", zap.String("token", res.Token))
	}
	pets := res.Pets
	if len(pets) == 0 {
		gc, err := s.api.GetGuestCart(ctx, res.Token)
		if err != nil {
			s.fail("Failed to load guest cart", err)
			return types.Cart{}, "", err
		}
		pets = gc.Pets
	}
	c := types.NewCart(pets)
	s.state.SetGuest(c)
	s.notify(types.NotifySuccess, "Pet added to cart!")
	return c, types.CartGuest, nil
}

// Remove takes a pet out of the active cart. A guest cart with no token
// exists only locally and is edited in place.
func (s *Service) Remove(ctx context.Context, petID int64) (types.Cart, types.CartKind, error) {
	if petID <= 0 {
		return types.Cart{}, "", types.ErrInvalidPetID
	}
	if s.session.IsAuthenticated() {
		pets, err := s.api.RemoveFromUserCart(ctx, petID)
		if err != nil {
			s.fail("Failed to remove pet from cart", err)
			return types.Cart{}, "", err
		}
		c := types.NewCart(pets)
		s.state.SetUser(c)
		return c, types.CartUser, nil
	}

	token, err := s.tokens.Current()
	if err != nil {
		s.fail("Failed to remove pet from cart", err)
		return types.Cart{}, "", err
	}
	if token == "" {
		c := withoutPet(s.state.Guest(), petID)
		s.state.SetGuest(c)
		return c, types.CartGuest, nil
	}
	gc, err := s.api.RemoveFromGuestCart(ctx, petID, token)
	if err != nil {
		s.fail("Failed to remove pet from cart", err)
		return types.Cart{}, "", err
	}
	c := types.NewCart(gc.Pets)
	s.state.SetGuest(c)
	return c, types.CartGuest, nil
}

// Clear empties the user cart. Guests have nothing server-side to clear.
func (s *Service) Clear(ctx context.Context) error {
	if !s.session.IsAuthenticated() {
		return types.ErrNotAuthenticated
	}
	if err := s.api.ClearUserCart(ctx); err != nil {
		s.fail("Failed to clear cart", err)
		return err
	}
	s.state.SetUser(types.EmptyCart())
	s.notify(types.NotifySuccess, "Cart cleared")
	return nil
}

// FetchUser reloads the user cart from the server.
func (s *Service) FetchUser(ctx context.Context) (types.Cart, error) {
	if !s.session.IsAuthenticated() {
		return types.Cart{}, types.ErrNotAuthenticated
	}
	pets, err := s.api.GetUserCart(ctx)
	if err != nil {
		return types.Cart{}, err
	}
	c := types.NewCart(pets)
	s.state.SetUser(c)
	return c, nil
}

// FetchGuest reloads the guest cart for the stored token. Without a token
// the local guest cart is returned unchanged.
func (s *Service) FetchGuest(ctx context.Context) (types.Cart, error) {
	token, err := s.tokens.Current()
	if err != nil {
		return types.Cart{}, err
	}
	if token == "" {
		return s.state.Guest(), nil
	}
	gc, err := s.api.GetGuestCart(ctx, token)
	if err != nil {
		return types.Cart{}, err
	}
	c := types.NewCart(gc.Pets)
	s.state.SetGuest(c)
	return c, nil
}

// Refresh reloads both carts concurrently and returns the active one.
func (s *Service) Refresh(ctx context.Context) (types.Cart, types.CartKind, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := s.FetchGuest(gctx); err != nil {
			return fmt.Errorf("guest cart: %w", err)
		}
		return nil
	})
	if s.session.IsAuthenticated() {
		g.Go(func() error {
			if _, err := s.FetchUser(gctx); err != nil {
				return fmt.Errorf("user cart: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail("Failed to load cart", err)
		return types.Cart{}, "", err
	}
	c, kind := s.Active()
	return c, kind, nil
}

// ResetUser forgets the local user cart. Called on logout.
func (s *Service) ResetUser() {
	s.state.SetUser(types.EmptyCart())
}

func (s *Service) notify(level types.NotificationLevel, msg string) {
	s.notifier.Notify(types.Notification{Level: level, Message: msg})
}

// fail logs err and notifies the user. Session expiry already produced its
// own notice through the expired hook and is not repeated.
func (s *Service) fail(what string, err error) {
	s.logger.Warn(what, zap.Error(err))
	if errors.Is(err, types.ErrSessionExpired) {
		return
	}
	s.notify(types.NotifyError, what+": "+types.UserMessage(err))
}

func withoutPet(c types.Cart, petID int64) types.Cart {
	pets := make([]types.Pet, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Pet.ID != petID {
			pets = append(pets, it.Pet)
		}
	}
	return types.NewCart(pets)
}

// discard drops notifications.
type discard struct{}

func (discard) Notify(types.Notification) {}
