// Package openapi builds the OpenAPI 3 document for the bacheca API. The
// surface is fixed, so the document is constructed programmatically rather
// than introspected.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Document returns the OpenAPI spec for the API served at baseURL.
func Document(baseURL, version string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Bacheca API",
			Description: "Community posting board: session auth, posts, and admin user management.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["cookieAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "cookie",
			Name: "session_id",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"cookieAuth": {}},
	}

	registerSchemas(doc)

	doc.Paths = openapi3.NewPaths()
	addAuthPaths(doc)
	addPostPaths(doc)
	addUserPaths(doc)

	return doc
}

func registerSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["Message"] = objectSchema(openapi3.Schemas{
		"message": stringProp(""),
	}, nil)

	doc.Components.Schemas["Identity"] = objectSchema(openapi3.Schemas{
		"id":       stringProp("uuid"),
		"username": stringProp(""),
		"is_admin": boolProp(),
	}, []string{"id", "username", "is_admin"})

	doc.Components.Schemas["User"] = objectSchema(openapi3.Schemas{
		"id":         stringProp("uuid"),
		"username":   stringProp(""),
		"is_admin":   boolProp(),
		"created_at": stringProp("date-time"),
	}, []string{"id", "username", "is_admin", "created_at"})

	doc.Components.Schemas["Post"] = objectSchema(openapi3.Schemas{
		"id":          stringProp("uuid"),
		"author_id":   stringProp("uuid"),
		"author_name": stringProp(""),
		"content":     stringProp(""),
		"created_at":  stringProp("date-time"),
	}, []string{"id", "author_id", "author_name", "content", "created_at"})
}

func addAuthPaths(doc *openapi3.T) {
	identityRef := openapi3.NewSchemaRef("#/components/schemas/Identity", nil)
	messageRef := openapi3.NewSchemaRef("#/components/schemas/Message", nil)

	doc.Paths.Set("/api/auth/login", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log in",
			OperationID: "login",
			Security:    &openapi3.SecurityRequirements{},
			RequestBody: jsonBody(objectSchema(openapi3.Schemas{
				"username": stringProp(""),
				"password": stringProp(""),
			}, []string{"username", "password"})),
			Responses: newResponses("200", "Authenticated identity; session cookie is set", identityRef),
		},
	})

	doc.Paths.Set("/api/auth/logout", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Log out",
			OperationID: "logout",
			Responses:   newResponses("200", "Session terminated; cookie cleared", messageRef),
		},
	})

	doc.Paths.Set("/api/auth/me", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"auth"},
			Summary:     "Current identity",
			OperationID: "me",
			Responses:   newResponses("200", "Identity behind the session cookie", identityRef),
		},
	})
}

func addPostPaths(doc *openapi3.T) {
	postRef := openapi3.NewSchemaRef("#/components/schemas/Post", nil)
	postListRef := arrayOf(postRef)
	messageRef := openapi3.NewSchemaRef("#/components/schemas/Message", nil)

	doc.Paths.Set("/api/posts", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"posts"},
			Summary:     "List posts",
			Description: "All posts, newest first.",
			OperationID: "list_posts",
			Responses:   newResponses("200", "Posts", postListRef),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"posts"},
			Summary:     "Create a post",
			OperationID: "create_post",
			RequestBody: jsonBody(objectSchema(openapi3.Schemas{
				"content": stringProp(""),
			}, []string{"content"})),
			Responses: newResponses("201", "Created post", postRef),
		},
	})

	doc.Paths.Set("/api/posts/search", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"posts"},
			Summary:     "Search posts",
			Description: "Case-insensitive substring match on content. A blank query returns all posts.",
			OperationID: "search_posts",
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("q").
						WithDescription("Search query.").
						WithSchema(openapi3.NewStringSchema()),
				},
			},
			Responses: newResponses("200", "Matching posts", postListRef),
		},
	})

	doc.Paths.Set("/api/posts/user/{userId}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"posts"},
			Summary:     "List a user's posts",
			OperationID: "list_user_posts",
			Parameters:  openapi3.Parameters{pathParam("userId")},
			Responses:   newResponses("200", "The user's posts, newest first", postListRef),
		},
	})

	doc.Paths.Set("/api/posts/{postId}", &openapi3.PathItem{
		Delete: &openapi3.Operation{
			Tags:        []string{"posts"},
			Summary:     "Delete a post",
			Description: "Allowed for the post's author and for admins.",
			OperationID: "delete_post",
			Parameters:  openapi3.Parameters{pathParam("postId")},
			Responses:   newResponses("200", "Post deleted", messageRef),
		},
	})
}

func addUserPaths(doc *openapi3.T) {
	userRef := openapi3.NewSchemaRef("#/components/schemas/User", nil)
	userListRef := arrayOf(userRef)
	messageRef := openapi3.NewSchemaRef("#/components/schemas/Message", nil)

	doc.Paths.Set("/api/users", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"users"},
			Summary:     "List users (admin)",
			OperationID: "list_users",
			Responses:   newResponses("200", "All accounts", userListRef),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"users"},
			Summary:     "Create a user (admin)",
			OperationID: "create_user",
			RequestBody: jsonBody(objectSchema(openapi3.Schemas{
				"username": stringProp(""),
				"password": stringProp(""),
			}, []string{"username", "password"})),
			Responses: newResponses("201", "Created account", userRef),
		},
	})

	doc.Paths.Set("/api/users/{userId}", &openapi3.PathItem{
		Delete: &openapi3.Operation{
			Tags:        []string{"users"},
			Summary:     "Delete a user (admin)",
			Description: "Cascades to the user's posts and sessions. The built-in admin account is refused.",
			OperationID: "delete_user",
			Parameters:  openapi3.Parameters{pathParam("userId")},
			Responses:   newResponses("200", "User deleted", messageRef),
		},
	})

	doc.Paths.Set("/api/users/{userId}/password", &openapi3.PathItem{
		Put: &openapi3.Operation{
			Tags:        []string{"users"},
			Summary:     "Change a user's password (admin)",
			Description: "Revokes all of the user's sessions.",
			OperationID: "change_user_password",
			Parameters:  openapi3.Parameters{pathParam("userId")},
			RequestBody: jsonBody(objectSchema(openapi3.Schemas{
				"new_password": stringProp(""),
			}, []string{"new_password"})),
			Responses: newResponses("200", "Password updated", messageRef),
		},
	})
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

func objectSchema(props openapi3.Schemas, required []string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func stringProp(format string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: format},
	}
}

func boolProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}},
	}
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: items,
		},
	}
}

func jsonBody(schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content:  openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

func pathParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema()),
	}
}

// newResponses builds a success response plus the standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for code, desc := range map[string]string{
		"400": "Bad request",
		"401": "Unauthorized",
		"403": "Forbidden",
		"404": "Not found",
		"409": "Conflict",
	} {
		d := desc
		responses.Set(code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &d,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}

	return responses
}
