package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ToolmanP/forumactif-archiver/pkg/bbcode"
)

func main() {
	var (
		in  []byte
		err error
	)
	switch len(os.Args) {
	case 1:
		in, err = io.ReadAll(os.Stdin)
	case 2:
		in, err = os.ReadFile(os.Args[1])
	default:
		log.Fatalln("Usage: transcode [file.html]")
	}
	if err != nil {
		log.Fatal(err)
	}

	t := &bbcode.Transcoder{}
	post := t.Transcode(string(in))
	fmt.Println(post.Text)
	fmt.Println("uid:", post.UID)
	fmt.Println("bitfield:", post.Bitfield)
	fmt.Println("checksum:", post.Checksum)
}
