package agent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/bizsite-ai-platform/internal/catalog"
)

// Form names persisted on FormState.
const (
	FormService  = "service"
	FormPackage  = "package"
	FormCategory = "category"
)

var directCreateREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcrea(?:r)?\s+(?:un|el|una)\s+(servicio|paquete)\s+(?:llamado|denominado|que se llame)\s+["“']?(.+?)["”']?\s+en\s+(?:la\s+)?categor[ií]a\s+["“']?(.+?)["”']?\s*[.!]?\s*$`),
	regexp.MustCompile(`(?i)\bcreate\s+(?:a|the)\s+(service|package)\s+(?:called|named)\s+["“']?(.+?)["”']?\s+in\s+(?:the\s+)?category\s+["“']?(.+?)["”']?\s*[.!]?\s*$`),
}

// catalogForms builds the catalog-entry forms for one org against the
// catalog as it is this turn.
type catalogForms struct {
	orgID    string
	snapshot *catalog.Snapshot
	writer   catalog.Writer
}

func (f catalogForms) resolver() *catalog.Resolver {
	if f.snapshot == nil {
		return catalog.NewResolver(nil)
	}
	return catalog.NewResolver(f.snapshot.Categories)
}

// formFor returns the form with the given name.
func (f catalogForms) formFor(name string) (Form, bool) {
	switch name {
	case FormService:
		return f.itemForm(catalog.KindService), true
	case FormPackage:
		return f.itemForm(catalog.KindPackage), true
	case FormCategory:
		return f.categoryForm(), true
	}
	return Form{}, false
}

func formNameForIntent(t IntentType) string {
	switch t {
	case IntentCreateService:
		return FormService
	case IntentCreatePackage:
		return FormPackage
	case IntentCreateCategory:
		return FormCategory
	}
	return ""
}

func (f catalogForms) itemForm(kind string) Form {
	noun, title := "servicio", "registrar un nuevo servicio"
	if kind == catalog.KindPackage {
		noun, title = "paquete", "registrar un nuevo paquete"
	}
	resolver := f.resolver()
	return Form{
		Name:  kind,
		Title: title,
		Fields: []FieldSpec{
			{
				Name:     "title",
				Label:    "Nombre",
				Prompt:   fmt.Sprintf("¿Cómo se llama el %s?", noun),
				Example:  "Auditoría SEO",
				Validate: validateTitle,
			},
			{
				Name:     "category",
				Label:    "Categoría",
				Prompt:   "¿En qué categoría va?" + categoryHint(resolver),
				Example:  "Marketing Digital",
				Validate: categoryValidator(resolver),
			},
			{
				Name:     "description",
				Label:    "Descripción",
				Prompt:   fmt.Sprintf("Describe brevemente el %s.", noun),
				Example:  "Revisión técnica completa del sitio con informe de mejoras.",
				Validate: lengthValidator("La descripción", 10, 500),
			},
			{
				Name:     "price",
				Label:    "Precio",
				Prompt:   "¿Cuál es el precio? Escribe \"omitir\" si prefieres no indicarlo.",
				Example:  "1500",
				Validate: validatePrice,
			},
		},
		OnComplete: func(ctx context.Context, data map[string]string) (string, error) {
			return f.createItem(ctx, kind, data["title"], data["category"], data["description"], data["price"])
		},
	}
}

func (f catalogForms) categoryForm() Form {
	resolver := f.resolver()
	return Form{
		Name:  FormCategory,
		Title: "crear una nueva categoría",
		Fields: []FieldSpec{
			{
				Name:    "name",
				Label:   "Nombre",
				Prompt:  "¿Cómo se llamará la categoría?",
				Example: "Marketing Digital",
				Validate: func(v string) (string, error) {
					name, err := boundedText("El nombre", v, 3, 60)
					if err != nil {
						return "", err
					}
					if c, ok := resolver.Resolve(name); ok && catalog.Fold(c.Name) == catalog.Fold(name) {
						return "", fieldErrorf("Ya existe una categoría llamada %q. Elige otro nombre.", c.Name)
					}
					return capitalizeFirst(name), nil
				},
			},
			{
				Name:     "description",
				Label:    "Descripción",
				Prompt:   "Describe brevemente la categoría.",
				Example:  "Servicios para aumentar la presencia de tu marca en internet.",
				Validate: lengthValidator("La descripción", 10, 300),
			},
		},
		OnComplete: func(ctx context.Context, data map[string]string) (string, error) {
			c, err := f.writer.CreateCategory(ctx, catalog.CategoryDraft{
				OrgID:       f.orgID,
				Name:        data["name"],
				Description: data["description"],
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Listo, creé la categoría \"%s\". Ya puedes registrar servicios en ella.", c.Name), nil
		},
	}
}

func (f catalogForms) createItem(ctx context.Context, kind, title, categoryID, description, price string) (string, error) {
	draft := catalog.ItemDraft{
		OrgID:       f.orgID,
		Title:       title,
		Kind:        kind,
		CategoryID:  categoryID,
		Description: description,
	}
	if price != "" {
		p, err := strconv.ParseFloat(price, 64)
		if err != nil {
			return "", fmt.Errorf("agent: parse price: %w", err)
		}
		draft.Price = &p
	}
	item, err := f.writer.CreateItem(ctx, draft)
	if err != nil {
		return "", err
	}
	noun := "el servicio"
	if kind == catalog.KindPackage {
		noun = "el paquete"
	}
	msg := fmt.Sprintf("Listo, registré %s \"%s\" en la categoría %s.", noun, item.Title, item.Category)
	if item.Price != nil {
		msg += fmt.Sprintf(" Precio: %s.", formatPrice(*item.Price))
	}
	return msg, nil
}

// directCreate handles "crea un servicio llamado X en la categoría Y" in one
// turn. ok is false when the message is not a direct request or a part of it
// does not validate, in which case the caller starts the regular form.
func (f catalogForms) directCreate(ctx context.Context, message string) (reply string, ok bool, err error) {
	for _, re := range directCreateREs {
		m := re.FindStringSubmatch(strings.TrimSpace(message))
		if m == nil {
			continue
		}
		kind := catalog.KindService
		if k := catalog.Fold(m[1]); k == "paquete" || k == "package" {
			kind = catalog.KindPackage
		}
		title, verr := validateTitle(m[2])
		if verr != nil {
			return "", false, nil
		}
		category, found := f.resolver().Resolve(m[3])
		if !found {
			return "", false, nil
		}
		reply, err = f.createItem(ctx, kind, title, category.ID, "", "")
		if err != nil {
			return "", false, err
		}
		return reply, true, nil
	}
	return "", false, nil
}

// fieldError is a validation message shown to the user as-is.
type fieldError string

func (e fieldError) Error() string { return string(e) }

func fieldErrorf(format string, args ...any) error {
	return fieldError(fmt.Sprintf(format, args...))
}

func validateTitle(v string) (string, error) {
	title, err := boundedText("El nombre", v, 3, 80)
	if err != nil {
		return "", err
	}
	return capitalizeFirst(title), nil
}

func categoryValidator(resolver *catalog.Resolver) func(string) (string, error) {
	return func(v string) (string, error) {
		if c, ok := resolver.Resolve(v); ok {
			return c.ID, nil
		}
		names := resolver.Names()
		if len(names) == 0 {
			return "", fieldError("Todavía no hay categorías registradas. Escribe \"cancelar\" y crea una categoría primero.")
		}
		return "", fieldErrorf("No encontré la categoría %q. Las opciones válidas son: %s.", strings.TrimSpace(v), strings.Join(names, ", "))
	}
}

func lengthValidator(label string, min, max int) func(string) (string, error) {
	return func(v string) (string, error) {
		return boundedText(label, v, min, max)
	}
}

func boundedText(label, v string, min, max int) (string, error) {
	v = strings.Join(strings.Fields(v), " ")
	n := utf8.RuneCountInString(v)
	if n < min {
		return "", fieldErrorf("%s debe tener al menos %d caracteres.", label, min)
	}
	if n > max {
		return "", fieldErrorf("%s no puede superar los %d caracteres.", label, max)
	}
	return v, nil
}

var priceCleanRE = regexp.MustCompile(`(?i)^(s/\.?|usd|us\$|\$|€|pen)\s*`)

// validatePrice accepts a positive amount, or "omitir"/"skip" which stores an
// empty value.
func validatePrice(v string) (string, error) {
	f := catalog.Fold(v)
	if f == "omitir" || f == "skip" || f == "no" || f == "sin precio" {
		return "", nil
	}
	cleaned := priceCleanRE.ReplaceAllString(strings.TrimSpace(v), "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return "", fieldError("El precio debe ser un número mayor que cero, por ejemplo 1500, o escribe \"omitir\".")
	}
	return strconv.FormatFloat(p, 'f', -1, 64), nil
}

func categoryHint(r *catalog.Resolver) string {
	names := r.Names()
	if len(names) == 0 {
		return ""
	}
	return " Opciones: " + strings.Join(names, ", ") + "."
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return strconv.FormatInt(int64(p), 10)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
