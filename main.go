package main

import "github.com/Bundesdruckerei-GmbH/gitlab-migration-helper/internal/cli"

func main() {
	cli.Execute()
}
