// Package all wires every built-in source backend into the registry.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend package, which register
// their constructors with the source package. The CLI imports it once so the
// rest of the program can stay backend-agnostic.
package all

import (
	_ "batchfix/internal/source/mssql"
	_ "batchfix/internal/source/mysql"
	_ "batchfix/internal/source/postgres"
	_ "batchfix/internal/source/sqlite"
)
