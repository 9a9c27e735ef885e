package main

import (
	"fmt"

	"example.com/types"
)

func main() {
	fmt.Println(types.First())
	fmt.Println(types.Second())
}
