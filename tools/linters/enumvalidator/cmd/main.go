package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"elva.app/accounting/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
