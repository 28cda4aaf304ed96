// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagMigrateDB, flagServer, flagGops, flagVersion, flagLogDateTime, flagLockForUpdate bool
	flagConfigFile, flagLogLevel, flagIndex, flagExportFormat, flagExportFile, flagRole  string
)

func cliInit() {
	flag.BoolVar(&flagMigrateDB, "migrate-db", false, "Run pending database migrations and exit")
	flag.BoolVar(&flagServer, "server", false, "Start the admin HTTP surface and maintenance scheduler, and keep running")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.BoolVar(&flagLockForUpdate, "lock-for-update", false, "Take a row lock on every record visited by the one-shot scan")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, notice, warn, err, crit]`")
	flag.StringVar(&flagIndex, "index", "", "Run a one-shot scan of `index-name` and print its records, then exit (ignored with -server)")
	flag.StringVar(&flagExportFormat, "export-format", "json", "Format for the one-shot scan's output: `[json, avro, line-protocol]`")
	flag.StringVar(&flagExportFile, "export-file", "", "Write the one-shot scan's output to `path` instead of stdout")
	flag.StringVar(&flagRole, "role", "reader", "Role asserted by this CLI invocation for -lock-for-update: `[reader, writer, admin]`")
	flag.Parse()
}
