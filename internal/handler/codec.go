package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
)

const maxBodyBytes = 1 << 20

// fields is a flat request body. JSON objects and urlencoded forms both
// decode into it; JSON null means the field is absent.
type fields map[string]string

func (f fields) str(key string) string {
	return strings.TrimSpace(f[key])
}

// int64 returns the field as an integer and whether it was present.
func (f fields) int64(key string) (int64, bool, error) {
	v := f.str(key)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true, &badRequestError{Field: key, Reason: "must be an integer"}
	}
	return n, true, nil
}

// badRequestError reports a malformed request body or query.
type badRequestError struct {
	Field  string
	Reason string
}

func (e *badRequestError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func readFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, &badRequestError{Reason: "malformed form body"}
		}
		out := make(fields, len(r.PostForm))
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &badRequestError{Reason: "unreadable body"}
	}
	out := fields{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return out, nil
	}

	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch d.Next() {
		case jx.String:
			v, err := d.Str()
			out[key] = v
			return err
		case jx.Number:
			v, err := d.Num()
			out[key] = v.String()
			return err
		case jx.Bool:
			v, err := d.Bool()
			out[key] = strconv.FormatBool(v)
			return err
		case jx.Null:
			return d.Null()
		default:
			return &badRequestError{Field: key, Reason: "must be a scalar"}
		}
	})
	if err != nil {
		var bre *badRequestError
		if errors.As(err, &bre) {
			return nil, bre
		}
		return nil, &badRequestError{Reason: "malformed JSON body"}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeArray[T any](w http.ResponseWriter, items []T, enc func(*jx.Encoder, T)) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range items {
			enc(e, it)
		}
		e.ArrEnd()
	})
}

func encodeCategory(e *jx.Encoder, c menu.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("slug")
	e.Str(c.Slug)
	e.FieldStart("title")
	e.Str(c.Title)
	e.ObjEnd()
}

func encodeMenuItem(e *jx.Encoder, it menu.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("title")
	e.Str(it.Title)
	e.FieldStart("price")
	e.Str(it.Price.StringFixed(2))
	e.FieldStart("featured")
	e.Bool(it.Featured)
	e.FieldStart("category")
	encodeCategory(e, it.Category)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u *auth.User) {
	if u == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(u.ID)
	e.FieldStart("username")
	e.Str(u.Username)
	e.FieldStart("email")
	e.Str(u.Email)
	e.ObjEnd()
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(l.ID)
	e.FieldStart("menuitem")
	encodeMenuItem(e, l.Item)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unit_price")
	e.Str(l.UnitPrice.StringFixed(2))
	e.FieldStart("price")
	e.Str(l.Price.StringFixed(2))
	e.ObjEnd()
}

func encodeOrderItem(e *jx.Encoder, it order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(it.ID)
	e.FieldStart("order_id")
	e.Int64(it.OrderID)
	e.FieldStart("menuitem")
	encodeMenuItem(e, it.MenuItem)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unit_price")
	e.Str(it.UnitPrice.StringFixed(2))
	e.FieldStart("price")
	e.Str(it.Price.StringFixed(2))
	e.ObjEnd()
}

// encodeOrder renders o. The "user" key is present only when the engine
// left the placer in place, i.e. for manager viewers.
func encodeOrder(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	if o.Placer != nil {
		e.FieldStart("user")
		encodeUser(e, o.Placer)
	}
	e.FieldStart("delivery_crew")
	encodeUser(e, o.DeliveryCrew)
	e.FieldStart("order_items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeOrderItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("date")
	e.Str(o.Date.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
