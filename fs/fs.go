// Package appfs holds the files embedded in the application binaries.
package appfs

import "embed"

// FS contains the SQL migrations and the email templates.
//
//go:embed migrations/*.sql templates/email/*
var FS embed.FS
