/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/losparviero/telesh/cmd"

func main() {
	cmd.Execute()
}
