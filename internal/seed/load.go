package seed

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/littlelemon/internal/domain/auth"
)

// LoadFiles decodes every path concurrently and merges the results in
// argument order.
func LoadFiles(ctx context.Context, paths ...string) (*Catalog, int, error) {
	parts := make([]*Catalog, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			c, err := LoadFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			parts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	c, dups := Merge(parts...)
	return c, dups, nil
}

// LoadFile decodes a single seed file.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(r)
}

// Decode parses a seed document.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	d := jx.Decode(r, 64*1024)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				var cat Category
				if err := decodeStrings(d, map[string]*string{"slug": &cat.Slug, "title": &cat.Title}); err != nil {
					return err
				}
				if cat.Slug == "" || cat.Title == "" {
					return errors.New("category needs slug and title")
				}
				c.Categories = append(c.Categories, cat)
				return nil
			})
		case "menu_items":
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeMenuItem(d)
				if err != nil {
					return err
				}
				c.MenuItems = append(c.MenuItems, it)
				return nil
			})
		case "users":
			return d.Arr(func(d *jx.Decoder) error {
				u, err := decodeUser(d)
				if err != nil {
					return err
				}
				c.Users = append(c.Users, u)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode seed")
	}
	return &c, nil
}

func decodeStrings(d *jx.Decoder, into map[string]*string) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		dst, ok := into[key]
		if !ok {
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
}

func decodeMenuItem(d *jx.Decoder) (MenuItem, error) {
	var it MenuItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "title":
			v, err := d.Str()
			it.Title = v
			return err
		case "category":
			v, err := d.Str()
			it.Category = v
			return err
		case "featured":
			v, err := d.Bool()
			it.Featured = v
			return err
		case "price":
			var raw string
			switch d.Next() {
			case jx.String:
				v, err := d.Str()
				if err != nil {
					return err
				}
				raw = v
			default:
				v, err := d.Num()
				if err != nil {
					return err
				}
				raw = v.String()
			}
			p, err := decimal.NewFromString(raw)
			if err != nil {
				return errors.Wrapf(err, "price %q", raw)
			}
			it.Price = p
			return nil
		default:
			return d.Skip()
		}
	})
	if err == nil && (it.Title == "" || it.Category == "") {
		err = errors.New("menu item needs title and category")
	}
	return it, err
}

func decodeUser(d *jx.Decoder) (User, error) {
	var u User
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "username":
			v, err := d.Str()
			u.Username = v
			return err
		case "email":
			v, err := d.Str()
			u.Email = v
			return err
		case "password":
			v, err := d.Str()
			u.Password = v
			return err
		case "groups":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				if err != nil {
					return err
				}
				switch r := auth.Role(v); r {
				case auth.RoleManager, auth.RoleDeliveryCrew:
					u.Groups = append(u.Groups, r)
					return nil
				default:
					return errors.Errorf("unknown group %q", v)
				}
			})
		default:
			return d.Skip()
		}
	})
	if err == nil && (u.Username == "" || u.Password == "") {
		err = errors.New("user needs username and password")
	}
	return u, err
}
