package message_test

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zostay/go-mimetree/message"
)

const exampleMsg = "Subject: Lunch\r\n" +
	"Content-Type: multipart/alternative; boundary=\"alt\"\r\n" +
	"\r\n" +
	"--alt\r\n" +
	"Content-Type: text/plain; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Caf=E9 at noon?\r\n" +
	"--alt\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Café at noon?</p>\r\n" +
	"--alt--\r\n"

func ExampleParse() {
	msg, err := message.Parse(strings.NewReader(exampleMsg))
	if err != nil {
		panic(err)
	}
	defer msg.Close()

	fmt.Println(msg.Root().HeaderValue("Subject", ""))
	for _, p := range msg.Root().Children() {
		fmt.Println(p.ContentType(), p.Charset())
	}

	// Output:
	// Lunch
	// text/plain ISO-8859-1
	// text/html UTF-8
}

func ExamplePart_Find() {
	msg, err := message.Parse(strings.NewReader(exampleMsg))
	if err != nil {
		panic(err)
	}
	defer msg.Close()

	text := msg.Root().Find(func(p *message.Part) bool {
		return p.ContentType() == "text/plain"
	})
	_, _ = io.Copy(os.Stdout, text.Reader())
	fmt.Println()

	// Output:
	// Café at noon?
}

func ExamplePart_RawReader() {
	msg, err := message.Parse(strings.NewReader(exampleMsg))
	if err != nil {
		panic(err)
	}
	defer msg.Close()

	_, _ = io.Copy(os.Stdout, msg.Root().Child(0).RawReader())
	fmt.Println()

	// Output:
	// Caf=E9 at noon?
}
