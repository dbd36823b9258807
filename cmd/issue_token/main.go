// issue_token emite un JWT de operador firmado con JWT_SECRET, para integraciones internas
// y operación sin proveedor de identidad.
//
// Uso: go run ./cmd/issue_token -user ops@example.com -role operator [-minutes 120]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/stockledger-api/pkg/config"
	"github.com/jhoicas/stockledger-api/pkg/jwt"
)

func main() {
	user := flag.String("user", "", "identificador del actor (queda en la bitácora de movimientos)")
	role := flag.String("role", jwt.RoleViewer, "rol: admin | operator | viewer")
	minutes := flag.Int("minutes", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	flag.Parse()

	if *user == "" || !jwt.ValidRole(*role) {
		fmt.Fprintln(os.Stderr, "Uso: issue_token -user <id> -role admin|operator|viewer [-minutes N]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	exp := *minutes
	if exp <= 0 {
		exp = cfg.JWT.Expiration
	}

	token, err := jwt.Generate(cfg.JWT.Secret, *user, *role, cfg.JWT.Issuer, exp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generar token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
