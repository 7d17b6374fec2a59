package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// cartView is the JSON shape of a printed cart.
type cartView struct {
	Kind types.CartKind `json:"kind"`
	Cart types.Cart     `json:"cart"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func cartTitle(kind types.CartKind) string {
	if kind == types.CartUser {
		return "Your cart"
	}
	return "Guest cart"
}

// printCart writes c as a short listing, or as JSON in --json mode.
func (a *app) printCart(c types.Cart, kind types.CartKind) error {
	if a.flags.jsonMode {
		return printJSON(a.out, cartView{Kind: kind, Cart: c})
	}
	fmt.Fprintf(a.out, "%s: %s\n", cartTitle(kind), itemCount(c.Total))
	for _, it := range c.Items {
		fmt.Fprintf(a.out, "  #%d %s", it.Pet.ID, it.Pet.Name)
		if it.Pet.Breed != "" {
			fmt.Fprintf(a.out, " (%s)", it.Pet.Breed)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}
