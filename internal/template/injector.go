package template

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/validate"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultPhoneRegion is used to format local phone numbers as E.164
const DefaultPhoneRegion = "EG"

// Policy decides what happens when an optional marker is missing
type Policy int

const (
	// Lenient skips writes whose marker is absent
	Lenient Policy = iota
	// Strict fails with a MismatchError when a value has no marker to go to
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy converts a config flag into a Policy
func ParsePolicy(strict bool) Policy {
	if strict {
		return Strict
	}
	return Lenient
}

// Options configures an Injector
type Options struct {
	TemplateID  string
	Policy      Policy
	PhoneRegion string
}

// Injector writes a BusinessRecord and a SiteConfig into a parsed template
type Injector struct {
	doc        *html.Node
	templateID string
	policy     Policy
	region     string

	// Pristine copy of the first service item, nil when the template has none
	prototype *html.Node
}

// write is one pending DOM mutation on the node carrying marker
type write struct {
	marker Marker
	apply  func(*html.Node)
}

// New parses the template and checks its required markers before anything is written
func New(doc string, opts Options) (*Injector, error) {
	if opts.TemplateID == "" {
		opts.TemplateID = model.DefaultTemplateID
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = DefaultPhoneRegion
	}

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", opts.TemplateID, err)
	}

	inj := &Injector{
		doc:        root,
		templateID: opts.TemplateID,
		policy:     opts.Policy,
		region:     opts.PhoneRegion,
	}

	for _, fm := range Markers {
		if fm.Required && inj.find(fm.Marker) == nil {
			return nil, inj.mismatch(fm.Marker)
		}
	}

	if item := inj.find(MarkerServiceItem); item != nil {
		inj.prototype = cloneNode(item)
	}

	return inj, nil
}

// InjectBusinessData writes every record field to its marker. Each write replaces
// the previous value, so injecting the same record twice gives identical output.
// In strict mode all markers are checked before the first write.
func (i *Injector) InjectBusinessData(rec *model.BusinessRecord) error {
	if rec == nil {
		return errors.New("inject: nil record")
	}

	writes := i.contentWrites(rec)
	targets := make([]*html.Node, len(writes))
	for k, w := range writes {
		targets[k] = i.find(w.marker)
		if targets[k] == nil && i.policy == Strict {
			return i.mismatch(w.marker)
		}
	}

	container := i.find(MarkerServices)
	canRenderServices := container != nil && i.prototype != nil
	if !canRenderServices && i.policy == Strict && len(rec.Services) > 0 {
		return i.mismatch(MarkerServices)
	}

	for k, w := range writes {
		if targets[k] != nil {
			w.apply(targets[k])
		}
	}

	if canRenderServices {
		i.injectServices(container, rec.Services)
	}

	return nil
}

func (i *Injector) contentWrites(rec *model.BusinessRecord) []write {
	var writes []write

	text := func(m Marker, value string) {
		if value == "" {
			return
		}
		writes = append(writes, write{m, func(n *html.Node) { setText(n, value) }})
	}
	attr := func(m Marker, key, value string) {
		if value == "" {
			return
		}
		writes = append(writes, write{m, func(n *html.Node) { setAttribute(n, key, value) }})
	}

	text(MarkerBusinessName, rec.BusinessName)
	text(MarkerTagline, model.Deref(rec.Tagline))

	if rec.Phone != "" {
		tel := "tel:" + i.e164(rec.Phone)
		writes = append(writes, write{MarkerPhone, func(n *html.Node) {
			setText(n, rec.Phone)
			setAttribute(n, "href", tel)
		}})
	}

	if wa := rec.WhatsAppNumber(); wa != "" {
		attr(MarkerWhatsApp, "href", "https://wa.me/"+strings.TrimPrefix(i.e164(wa), "+"))
	}

	if email := model.Deref(rec.Email); email != "" {
		writes = append(writes, write{MarkerEmail, func(n *html.Node) {
			setText(n, email)
			setAttribute(n, "href", "mailto:"+email)
		}})
	}

	text(MarkerAddress, model.Deref(rec.Address))

	if hero := model.Deref(rec.HeroImage); hero != "" {
		writes = append(writes, write{MarkerHeroImage, func(n *html.Node) {
			if n.DataAtom == atom.Img {
				setAttribute(n, "src", hero)
				return
			}
			setStyleProperty(n, "background-image", `url("`+strings.ReplaceAll(hero, `"`, "%22")+`")`)
		}})
	}

	attr(MarkerLogo, "src", model.Deref(rec.Logo))
	attr(MarkerFacebook, "href", model.Deref(rec.Facebook))
	attr(MarkerInstagram, "href", model.Deref(rec.Instagram))

	return writes
}

// injectServices empties the container and appends one prototype clone per service
func (i *Injector) injectServices(container *html.Node, services []model.Service) {
	removeChildren(container)

	for _, svc := range services {
		item := cloneNode(i.prototype)

		if n := findFirst(item, markerMatch(MarkerServiceTitle)); n != nil {
			setText(n, svc.Title)
		}
		if n := findFirst(item, markerMatch(MarkerServiceDescription)); n != nil {
			setText(n, svc.Description)
		}
		if svc.Icon != "" {
			if n := findFirst(item, markerMatch(MarkerServiceIcon)); n != nil {
				setText(n, svc.Icon)
			}
		}

		container.AppendChild(item)
	}
}

// ApplyConfig sets direction, colors and font. It touches only the html element,
// a single marked style block in head and the body style, so it commutes with
// InjectBusinessData.
func (i *Injector) ApplyConfig(cfg model.SiteConfig) error {
	cfg, err := validate.SiteConfig(cfg)
	if err != nil {
		return fmt.Errorf("site config: %w", err)
	}

	if cfg.RTL {
		if root := findFirst(i.doc, isElement(atom.Html)); root != nil {
			setAttribute(root, "dir", "rtl")
			setAttribute(root, "lang", "ar")
		}
	}

	if head := findFirst(i.doc, isElement(atom.Head)); head != nil {
		style := findFirst(head, func(n *html.Node) bool {
			return isElement(atom.Style)(n) && hasAttr(n, string(MarkerConfigStyle))
		})
		if style == nil {
			style = &html.Node{
				Type:     html.ElementNode,
				DataAtom: atom.Style,
				Data:     "style",
				Attr:     []html.Attribute{{Key: string(MarkerConfigStyle)}},
			}
			head.AppendChild(style)
		}
		setText(style, fmt.Sprintf(":root { --color-primary: %s; --color-secondary: %s; }",
			cfg.PrimaryColor, cfg.SecondaryColor))
	}

	if body := findFirst(i.doc, isElement(atom.Body)); body != nil {
		setStyleProperty(body, "font-family", fmt.Sprintf("'%s', sans-serif", cfg.FontFamily))
	}

	return nil
}

// HTML serializes the whole document
func (i *Injector) HTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, i.doc); err != nil {
		return "", fmt.Errorf("render template %s: %w", i.templateID, err)
	}
	return buf.String(), nil
}

// MissingMarkers lists the table markers the template does not contain
func (i *Injector) MissingMarkers() []Marker {
	var missing []Marker
	for _, fm := range Markers {
		if i.find(fm.Marker) == nil {
			missing = append(missing, fm.Marker)
		}
	}
	return missing
}

// TemplateID returns the id used in mismatch errors
func (i *Injector) TemplateID() string {
	return i.templateID
}

// Render parses doc, injects rec, applies cfg when given and returns the HTML
func Render(doc string, rec *model.BusinessRecord, cfg *model.SiteConfig, opts Options) (string, error) {
	inj, err := New(doc, opts)
	if err != nil {
		return "", err
	}

	if err := inj.InjectBusinessData(rec); err != nil {
		return "", err
	}

	if cfg != nil {
		if err := inj.ApplyConfig(*cfg); err != nil {
			return "", err
		}
	}

	return inj.HTML()
}

// find returns the first node in document order carrying marker
func (i *Injector) find(m Marker) *html.Node {
	return findFirst(i.doc, markerMatch(m))
}

func (i *Injector) mismatch(m Marker) error {
	return &MismatchError{Selector: m.Selector(), TemplateID: i.templateID}
}

// e164 formats a local number as +<country><national>, falling back to the Egyptian prefix
func (i *Injector) e164(number string) string {
	num, err := phonenumbers.Parse(number, i.region)
	if err != nil {
		return "+2" + number
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func markerMatch(m Marker) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return hasAttr(n, string(m))
	}
}
