package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type cli struct {
	app *app.App
	out io.Writer
}

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"register":    register,
	"login":       login(false),
	"admin-login": login(true),
	"logout":      logout,
	"whoami":      whoami,
	"products":    products,
	"product":     product,
	"add":         add,
	"cart":        showCart,
	"qty":         setQty,
	"remove":      remove,
	"clear":       clearCart,
	"favorites":   favorites,
	"fav-add":     favAdd,
	"fav-remove":  favRemove,
	"checkout":    runCheckout,
}

func positional(args []string, n int, names string) error {
	if len(args) < n {
		return fmt.Errorf("%w: expected %s", domain.ErrValidation, names)
	}
	return nil
}

func register(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var reg domain.Registration
	fs.StringVar(&reg.Username, "username", "", "username")
	fs.StringVar(&reg.Email, "email", "", "email")
	fs.StringVar(&reg.Phone, "phone", "", "phone number")
	fs.StringVar(&reg.Password, "password", "", "password")
	fs.StringVar(&reg.ConfirmPassword, "confirm", "", "password again")
	avatar := fs.String("avatar", "", "path to an avatar image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *avatar != "" {
		data, err := os.ReadFile(*avatar)
		if err != nil {
			return fmt.Errorf("%w: read avatar: %v", domain.ErrValidation, err)
		}
		reg.Avatar = data
		reg.AvatarName = *avatar
	}

	u, err := c.app.Auth.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Registered %s (%s). You can now log in.\n", u.Username, u.Email)
	return nil
}

func login(admin bool) command {
	return func(ctx context.Context, c *cli, args []string) error {
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		var creds domain.Credentials
		fs.StringVar(&creds.Email, "email", "", "email")
		fs.StringVar(&creds.Password, "password", "", "password")
		if err := fs.Parse(args); err != nil {
			return err
		}

		signIn := c.app.Auth.Login
		if admin {
			signIn = c.app.Auth.AdminLogin
		}
		u, err := signIn(ctx, creds)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Signed in as %s (%s).\n", u.Username, u.Role)

		if err := c.app.Favorites.Sync(ctx); err != nil {
			fmt.Fprintf(c.out, "Could not load favorites: %v\n", err)
		}
		return nil
	}
}

func logout(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func whoami(_ context.Context, c *cli, _ []string) error {
	u := c.app.Auth.User()
	if u == nil {
		fmt.Fprintln(c.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(c.out, "%s <%s> role=%s id=%s\n", u.Username, u.Email, u.Role, u.ID)
	return nil
}

func products(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	var q domain.ProductQuery
	fs.StringVar(&q.Q, "q", "", "search text")
	fs.StringVar(&q.Tag, "tag", "", "tag filter")
	sortBy := fs.String("sort", string(domain.SortPopular), "sort order")
	fs.IntVar(&q.Page, "page", domain.DefaultPage, "page")
	fs.IntVar(&q.Limit, "limit", domain.DefaultLimit, "page size")
	offline := fs.Bool("offline", false, "use the cached catalog only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q.Sort = domain.SortOrder(*sortBy)

	var page domain.ProductPage
	if *offline {
		page = c.app.Catalog.Query(q)
	} else {
		remote, err := c.app.Catalog.Refresh(ctx, q)
		if err != nil {
			return err
		}
		page = *remote
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME\tPRICE\tSTOCK\tFAV")
	for _, p := range page.Items {
		fav := ""
		if c.app.Favorites.Contains(p.ID) {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.Slug, p.Name, p.Price.StringFixed(2), p.TotalStock, fav)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d/%d, %d products\n", page.Page, page.Pages, page.Total)
	return nil
}

func product(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 1, "<slug>"); err != nil {
		return err
	}
	p, err := c.app.Catalog.BySlug(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s (%s)\n  id: %s\n  price: %s\n", p.Name, p.Slug, p.ID, p.Price.StringFixed(2))
	if p.Colour != "" || p.Size != "" {
		fmt.Fprintf(c.out, "  colour: %s  size: %s\n", p.Colour, p.Size)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(c.out, "  tags: %s\n", strings.Join(p.Tags, ", "))
	}
	fmt.Fprintf(c.out, "  in stock: %t (%d)\n", p.InStock, p.TotalStock)
	if p.Description != "" {
		fmt.Fprintf(c.out, "  %s\n", p.Description)
	}
	return nil
}

func add(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 1, "<slug> [attr=value...]"); err != nil {
		return err
	}
	attrs := make(map[string]string)
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("%w: variant attribute %q is not attr=value", domain.ErrValidation, kv)
		}
		attrs[k] = v
	}

	p, err := c.app.Catalog.BySlug(ctx, args[0])
	if err != nil {
		return err
	}
	variant := domain.VariantKey(attrs)
	if err := c.app.Cart.AddLine(ctx, p, variant); err != nil {
		return err
	}
	line, _ := c.app.Cart.Line(domain.NewLineKey(p.ID, variant))
	fmt.Fprintf(c.out, "Added %s (qty %d). Subtotal %s\n", p.Name, line.Quantity, c.app.Cart.Subtotal().StringFixed(2))
	return nil
}

func showCart(_ context.Context, c *cli, _ []string) error {
	lines := c.app.Cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "Your cart is empty.")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tVARIANT\tQTY\tPRICE\tTOTAL")
	for _, l := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			l.Key, l.Product.Name, l.Variant, l.Quantity, l.Product.Price.StringFixed(2), l.Total().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d items, subtotal %s\n", c.app.Cart.Count(), c.app.Cart.Subtotal().StringFixed(2))
	return nil
}

func setQty(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 2, "<line-key> <n>"); err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: quantity %q is not a number", domain.ErrValidation, args[1])
	}
	key := domain.LineKey(args[0])
	if _, ok := c.app.Cart.Line(key); !ok {
		fmt.Fprintf(c.out, "No line %s in cart.\n", key)
		return nil
	}
	if err := c.app.Cart.SetQuantity(ctx, key, n); err != nil {
		return err
	}
	line, _ := c.app.Cart.Line(key)
	fmt.Fprintf(c.out, "%s now qty %d.\n", key, line.Quantity)
	return nil
}

func remove(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 1, "<line-key>"); err != nil {
		return err
	}
	if err := c.app.Cart.RemoveLine(ctx, domain.LineKey(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed %s.\n", args[0])
	return nil
}

func clearCart(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Cart.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Cart cleared.")
	return nil
}

func favorites(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("favorites", flag.ContinueOnError)
	sync := fs.Bool("sync", false, "reload favorites from the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !c.app.Auth.IsAuthenticated() {
		fmt.Fprintln(c.out, "Sign in to see your favorites.")
		return nil
	}
	if *sync {
		if err := c.app.Favorites.Sync(ctx); err != nil {
			return err
		}
	}
	items := c.app.Favorites.List()
	if len(items) == 0 {
		fmt.Fprintln(c.out, "No favorites yet.")
		return nil
	}
	for _, p := range items {
		fmt.Fprintf(c.out, "%s\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2))
	}
	return nil
}

func favAdd(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 1, "<product-id>"); err != nil {
		return err
	}
	if err := c.app.Favorites.Add(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s to favorites.\n", args[0])
	return nil
}

func favRemove(ctx context.Context, c *cli, args []string) error {
	if err := positional(args, 1, "<product-id>"); err != nil {
		return err
	}
	if err := c.app.Favorites.Remove(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed %s from favorites.\n", args[0])
	return nil
}

func runCheckout(ctx context.Context, c *cli, _ []string) error {
	out, err := c.app.Checkout.Checkout(ctx)
	switch {
	case errors.Is(err, checkout.ErrAbandoned):
		fmt.Fprintln(c.out, "Checkout abandoned. Your cart was kept.")
		return nil
	case checkout.IsDivergence(err):
		fmt.Fprintf(c.out, "ATTENTION: %s\n", out.Reason)
		return err
	case err != nil && out.State == domain.CheckoutFailed:
		fmt.Fprintf(c.out, "Checkout failed: %s\n", out.Reason)
		return err
	case err != nil:
		return err
	}
	fmt.Fprintf(c.out, "Order %s paid: %s. Thank you!\n", out.Intent.OrderID, out.Intent.AmountDue.StringFixed(2))
	return nil
}
