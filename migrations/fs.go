// Package migrations embute as migrações SQL aplicadas na subida da API.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
