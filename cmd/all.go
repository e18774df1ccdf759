package cmd

import (
	_ "fcc-bootstrap/cmd/cert"
	_ "fcc-bootstrap/cmd/license"
	_ "fcc-bootstrap/cmd/logs"
	_ "fcc-bootstrap/cmd/root"
	_ "fcc-bootstrap/cmd/run"
	_ "fcc-bootstrap/cmd/server"
	_ "fcc-bootstrap/cmd/status"
	_ "fcc-bootstrap/cmd/trust"
)
