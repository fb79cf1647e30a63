// Package rest serves CRUD endpoints for every registered resource with no
// per-table handler code.
//
// Each resource is exposed under its endpoint name:
//
//	GET    /{endpoint}       list rows
//	POST   /{endpoint}       insert a row from the request body
//	GET    /{endpoint}/{id}  fetch one row by primary key
//	PATCH  /{endpoint}/{id}  partial update (only truthy body values applied)
//	PUT    /{endpoint}/{id}  full replace (absent or falsy body values become NULL)
//	DELETE /{endpoint}/{id}  delete one row by primary key
//
// Responses carry the row's column values plus a "links" list holding at
// least the self link:
//
//	{"id": 3, "name": "Ada", "links": [{"rel": "self", "uri": "/persons/3"}]}
//
// Requests for unknown endpoints return 404; methods outside a resource's
// allowlist return 405 before any database access. Database errors
// propagate as 500 with a generic body; the underlying error is logged,
// not leaked.
package rest
