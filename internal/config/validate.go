// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"embed"
	"encoding/json"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/scoutdb/scoutdb/pkg/log"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = loadSchemaFile
}

// validate checks r against the engine config schema before it is
// decoded into Keys, so a typo'd field name or wrong type is reported
// with a schema path instead of surfacing as a silently zero-valued
// field.
func validate(r io.Reader) error {
	s, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return err
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		log.Errorf("config.validate: failed to decode: %v", err)
		return err
	}

	return s.Validate(v)
}
