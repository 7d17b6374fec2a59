// Package testutil provides fakes shared by pawcart package tests: an
// in-memory Storage, a recording Notifier, and an httptest server that
// speaks the cart and auth API.
package testutil
