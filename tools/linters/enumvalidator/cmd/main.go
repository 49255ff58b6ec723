package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/EI94/Urbanova-sub017/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
