package httpapi

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/usecase"
)

const bearerScheme = "bearerAuth"

// BookInput is the request body of book create and replace.
type BookInput struct {
	Title         string   `json:"title" minLength:"1"`
	ISBN          string   `json:"isbn" minLength:"10"`
	AuthorID      string   `json:"authorId" pattern:"^[0-9a-fA-F]{24}$" doc:"Identifier of the author. Only its form is checked."`
	PublishedYear int      `json:"publishedYear" minimum:"1400" doc:"At most one year after the current year."`
	Genres        []string `json:"genres" minItems:"1"`
	Pages         int      `json:"pages" minimum:"1" maximum:"2147483647"`
	InStock       bool     `json:"inStock"`
	Price         float64  `json:"price" minimum:"0"`
}

type BookRecord struct {
	ID string `json:"id" pattern:"^[0-9a-f]{24}$" doc:"Store-assigned identifier"`
	BookInput
}

// AuthorInput is the request body of author create and replace.
type AuthorInput struct {
	FirstName   string `json:"firstName" minLength:"1"`
	LastName    string `json:"lastName" minLength:"1"`
	Email       string `json:"email" format:"email" doc:"Stored lowercased."`
	Birthdate   string `json:"birthdate" format:"date" doc:"Calendar date, not in the future. RFC 3339 timestamps are accepted and truncated to the date."`
	Nationality string `json:"nationality" minLength:"1"`
	Website     string `json:"website,omitempty" format:"uri"`
}

type AuthorRecord struct {
	ID          string    `json:"id" pattern:"^[0-9a-f]{24}$" doc:"Store-assigned identifier"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Birthdate   time.Time `json:"birthdate"`
	Nationality string    `json:"nationality"`
	Website     string    `json:"website,omitempty"`
}

type resourceDoc struct {
	path     string
	tag      string
	singular string
	record   reflect.Type
	input    reflect.Type
	adjust   func(input *huma.Schema, now time.Time)
}

var resourceDocs = []resourceDoc{
	{
		path:     "/books",
		tag:      "Books",
		singular: "Book",
		record:   reflect.TypeFor[BookRecord](),
		input:    reflect.TypeFor[BookInput](),
		adjust: func(input *huma.Schema, now time.Time) {
			if prop := input.Properties["publishedYear"]; prop != nil {
				maxYear := float64(usecase.MaxPublishedYear(now))
				prop.Maximum = &maxYear
			}
		},
	},
	{
		path:     "/authors",
		tag:      "Authors",
		singular: "Author",
		record:   reflect.TypeFor[AuthorRecord](),
		input:    reflect.TypeFor[AuthorInput](),
	},
}

// OpenAPI describes the served endpoints. Bounds that move with the calendar
// are resolved against now.
func (h *Handler) OpenAPI(now time.Time) *huma.OpenAPI {
	registry := huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer)
	errorSchema := registry.Schema(reflect.TypeFor[errorBody](), true, "ErrorBody")
	validationSchema := registry.Schema(reflect.TypeFor[validationErrorBody](), true, "ValidationErrorBody")
	createdSchema := registry.Schema(reflect.TypeFor[createdBody](), true, "CreatedBody")

	errResponse := func(description string) *huma.Response {
		return &huma.Response{Description: description, Content: jsonContent(errorSchema)}
	}
	security := func(scope string) []map[string][]string {
		if scope == "" {
			return nil
		}
		return []map[string][]string{{bearerScheme: {scope}}}
	}
	readScope, writeScope := h.opts.Auth.ReadScope(), h.opts.Auth.WriteScope()
	idParam := &huma.Param{
		Name:     "id",
		In:       "path",
		Required: true,
		Schema:   &huma.Schema{Type: huma.TypeString, Pattern: "^[0-9a-fA-F]{24}$"},
	}

	api := &huma.OpenAPI{
		OpenAPI: "3.1.0",
		Info: &huma.Info{
			Title:       h.opts.Title,
			Version:     h.opts.Version,
			Description: "CRUD API for books and authors.",
		},
		Paths: map[string]*huma.PathItem{},
		Components: &huma.Components{
			Schemas: registry,
			SecuritySchemes: map[string]*huma.SecurityScheme{
				bearerScheme: {
					Type:         "http",
					Scheme:       "bearer",
					BearerFormat: "JWT",
					Description:  "OAuth2 access token. Writes require " + strconv.Quote(writeScope) + ".",
				},
			},
		},
	}

	for _, doc := range resourceDocs {
		record := registry.Schema(doc.record, true, doc.singular+"Record")
		input := registry.Schema(doc.input, true, doc.singular+"Input")
		if doc.adjust != nil {
			if def := registry.SchemaFromRef(input.Ref); def != nil {
				doc.adjust(def, now)
			}
		}
		list := &huma.Schema{Type: huma.TypeArray, Items: record}
		body := &huma.RequestBody{Required: true, Content: jsonContent(input)}
		notFound := errResponse(doc.singular + " not found")
		invalid := &huma.Response{Description: "Invalid identifier or payload", Content: jsonContent(validationSchema)}

		writeResponses := func(success string, r *huma.Response) map[string]*huma.Response {
			return map[string]*huma.Response{
				success: r,
				"401":   errResponse("Missing or invalid bearer token"),
				"403":   errResponse("Token lacks " + writeScope),
				"500":   errResponse("Internal server error"),
			}
		}

		create := writeResponses("201", &huma.Response{
			Description: doc.singular + " created",
			Headers: map[string]*huma.Param{
				"Location": {Description: "Path of the created record", Schema: &huma.Schema{Type: huma.TypeString}},
			},
			Content: jsonContent(createdSchema),
		})
		create["400"] = invalid
		create["415"] = errResponse("Content type is not application/json")

		replace := writeResponses("204", &huma.Response{Description: doc.singular + " replaced"})
		replace["400"] = invalid
		replace["404"] = notFound
		replace["415"] = errResponse("Content type is not application/json")

		remove := writeResponses("204", &huma.Response{Description: doc.singular + " deleted"})
		remove["400"] = errResponse("Invalid identifier")
		remove["404"] = notFound

		api.Paths[doc.path] = &huma.PathItem{
			Get: &huma.Operation{
				OperationID: "list" + doc.tag,
				Summary:     "List " + doc.path[1:],
				Tags:        []string{doc.tag},
				Security:    security(readScope),
				Responses: map[string]*huma.Response{
					"200": {Description: "All " + doc.path[1:], Content: jsonContent(list)},
					"500": errResponse("Internal server error"),
				},
			},
			Post: &huma.Operation{
				OperationID: "create" + doc.singular,
				Summary:     "Create a " + doc.path[1:len(doc.path)-1],
				Tags:        []string{doc.tag},
				Security:    security(writeScope),
				RequestBody: body,
				Responses:   create,
			},
		}
		api.Paths[doc.path+"/{id}"] = &huma.PathItem{
			Parameters: []*huma.Param{idParam},
			Get: &huma.Operation{
				OperationID: "get" + doc.singular,
				Summary:     "Get a " + doc.path[1:len(doc.path)-1],
				Tags:        []string{doc.tag},
				Security:    security(readScope),
				Responses: map[string]*huma.Response{
					"200": {Description: doc.singular, Content: jsonContent(record)},
					"400": errResponse("Invalid identifier"),
					"404": notFound,
					"500": errResponse("Internal server error"),
				},
			},
			Put: &huma.Operation{
				OperationID: "replace" + doc.singular,
				Summary:     "Replace a " + doc.path[1:len(doc.path)-1],
				Tags:        []string{doc.tag},
				Security:    security(writeScope),
				RequestBody: body,
				Responses:   replace,
			},
			Delete: &huma.Operation{
				OperationID: "delete" + doc.singular,
				Summary:     "Delete a " + doc.path[1:len(doc.path)-1],
				Tags:        []string{doc.tag},
				Security:    security(writeScope),
				Responses:   remove,
			},
		}
	}

	return api
}

func jsonContent(schema *huma.Schema) map[string]*huma.MediaType {
	return map[string]*huma.MediaType{"application/json": {Schema: schema}}
}

func (h *Handler) openapi(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(h.OpenAPI(time.Now()))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.oai.openapi+json")
	_, _ = w.Write(data)
}

const docsPage = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="referrer" content="same-origin" />
    <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
    <title>%s reference</title>
    <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
    <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" crossorigin="anonymous" />
  </head>
  <body style="height: 100vh;">
    <elements-api apiDescriptionUrl="/openapi.json" router="hash" layout="sidebar" tryItCredentialsPolicy="same-origin" />
  </body>
</html>
`

func (h *Handler) docs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(fmt.Sprintf(docsPage, html.EscapeString(h.opts.Title))))
}
