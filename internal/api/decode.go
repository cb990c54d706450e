package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/shopsync/internal/domain/auth"
	"github.com/xenking/shopsync/internal/domain/product"
)

// The backend wraps every payload in a {"success":bool,"data":...} envelope;
// product listings add a sibling "pagination" object and errors come as
// {"error":{"message":...}}. The decoders below are tolerant of unknown
// keys so backend additions do not break the client.

// decodeProductsPage parses a server-paginated listing response.
func decodeProductsPage(data []byte) (*product.Page, error) {
	var page product.Page
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				page.Items = append(page.Items, p)
				return nil
			})
		case "pagination":
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "currentPage":
					page.Page, err = d.Int()
				case "totalPages":
					page.TotalPages, err = d.Int()
				case "totalItems":
					page.TotalItems, err = d.Int()
				case "limit":
					page.Limit, err = d.Int()
				case "hasNextPage":
					page.HasNext, err = d.Bool()
				case "hasPrevPage":
					page.HasPrev, err = d.Bool()
				default:
					err = d.Skip()
				}
				return err
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode products page")
	}
	return &page, nil
}

// decodeProductList parses a search response: the full match set without a
// pagination envelope.
func decodeProductList(data []byte) ([]product.Product, error) {
	var items []product.Product
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			p, err := decodeProduct(d)
			if err != nil {
				return err
			}
			items = append(items, p)
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode product list")
	}
	return items, nil
}

// decodeProductEnvelope parses a single product wrapped in the data
// envelope, as returned by create/update.
func decodeProductEnvelope(data []byte) (*product.Product, error) {
	var p product.Product
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		var err error
		p, err = decodeProduct(d)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

// decodeProductDetail parses the detail endpoint response, which extends the
// product shape with an owner record.
func decodeProductDetail(data []byte) (*product.Detail, error) {
	var det product.Detail
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key == "owner" {
				return d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "_id":
						det.Owner.ID, err = d.Str()
					case "email":
						det.Owner.Email, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				})
			}
			handled, err := decodeProductField(d, key, &det.Product)
			if err != nil {
				return err
			}
			if !handled {
				return d.Skip()
			}
			return nil
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode product detail")
	}
	return &det, nil
}

// decodeProduct parses one product object.
func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		handled, err := decodeProductField(d, key, &p)
		if err != nil {
			return err
		}
		if !handled {
			return d.Skip()
		}
		return nil
	})
	return p, err
}

// decodeProductField decodes one known product key into p. It reports false
// without consuming input when the key is unknown.
func decodeProductField(d *jx.Decoder, key string, p *product.Product) (bool, error) {
	var err error
	switch key {
	case "_id":
		p.ID, err = d.Str()
	case "title":
		p.Title, err = d.Str()
	case "description":
		p.Description, err = d.Str()
	case "userId":
		p.UserID, err = d.Str()
	case "price":
		var n jx.Num
		if n, err = d.Num(); err == nil {
			p.Price, err = decimal.NewFromString(n.String())
		}
	case "images":
		if d.Next() == jx.Null {
			return true, d.Null()
		}
		err = d.Arr(func(d *jx.Decoder) error {
			var img product.Image
			if e := d.Obj(func(d *jx.Decoder, key string) error {
				var e error
				switch key {
				case "_id":
					img.ID, e = d.Str()
				case "url":
					img.URL, e = d.Str()
				default:
					e = d.Skip()
				}
				return e
			}); e != nil {
				return e
			}
			p.Images = append(p.Images, img)
			return nil
		})
	case "location":
		if d.Next() == jx.Null {
			return true, d.Null()
		}
		err = d.Obj(func(d *jx.Decoder, key string) error {
			var e error
			switch key {
			case "name":
				p.Location.Name, e = d.Str()
			case "latitude":
				p.Location.Latitude, e = d.Float64()
			case "longitude":
				p.Location.Longitude, e = d.Float64()
			default:
				e = d.Skip()
			}
			return e
		})
	default:
		return false, nil
	}
	return true, err
}

// decodeTokenPair parses a login or refresh response.
func decodeTokenPair(data []byte) (*auth.TokenPair, error) {
	var pair auth.TokenPair
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "accessToken":
				pair.AccessToken, err = d.Str()
			case "refreshToken":
				pair.RefreshToken, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode token pair")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, errors.New("token pair missing from response")
	}
	return &pair, nil
}

// decodeProfile parses the {"data":{"user":{...}}} profile envelope.
func decodeProfile(data []byte) (*auth.Profile, error) {
	var prof auth.Profile
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "user" {
				return d.Skip()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "_id":
					prof.ID, err = d.Str()
				case "email":
					prof.Email, err = d.Str()
				case "firstName":
					prof.FirstName, err = d.Str()
				case "lastName":
					prof.LastName, err = d.Str()
				case "avatar":
					// The backend serves the avatar either as a bare URL or
					// as an object after rewriting uploads.
					if d.Next() == jx.Object {
						return d.Obj(func(d *jx.Decoder, key string) error {
							var e error
							if key == "url" {
								prof.AvatarURL, e = d.Str()
								return e
							}
							return d.Skip()
						})
					}
					prof.AvatarURL, err = d.Str()
				default:
					err = d.Skip()
				}
				return err
			})
		})
	}); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	return &prof, nil
}

// errorMessage extracts the message from an error envelope. A malformed
// body yields "" and the caller falls back to the HTTP status text.
func errorMessage(data []byte) string {
	var msg string
	d := jx.DecodeBytes(data)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "message" {
				return d.Skip()
			}
			var err error
			msg, err = d.Str()
			return err
		})
	})
	return msg
}
