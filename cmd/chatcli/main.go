/*
Package main is a terminal messenger for the Mingle server.

It signs in (or registers) over REST, opens a websocket to the relay, and
runs a line-based conversation loop against one counterpart: plain lines
send messages, /edit and /delete operate on existing ones, and events from
the other side are printed as they arrive.
*/
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mingle/client"
	"mingle/internal/app/store"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8080", "base URL of the mingle server")
		username  = flag.String("user", "", "username to sign in with")
		password  = flag.String("pass", "", "password")
		register  = flag.Bool("register", false, "register a new account instead of signing in")
		firstName = flag.String("first", "", "first name (with -register)")
		lastName  = flag.String("last", "", "last name (with -register)")
		withID    = flag.Int64("with", 0, "person ID to open a conversation with")
	)
	flag.Parse()

	if err := run(*serverURL, *username, *password, *register, *firstName, *lastName, *withID); err != nil {
		fmt.Fprintf(os.Stderr, "chatcli: %v\n", err)
		os.Exit(1)
	}
}

func run(serverURL, username, password string, register bool, firstName, lastName string, withID int64) error {
	ctx := context.Background()
	api := client.NewAPI(serverURL)

	var self store.PublicPerson
	if register {
		if firstName == "" || lastName == "" || password == "" {
			return fmt.Errorf("registration needs -first, -last and -pass")
		}
		creds, err := api.Register(ctx, firstName, lastName, password)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		self = creds.Person
		fmt.Printf("registered as %s (id %d)\n", self.Username, self.ID)
	} else {
		if username == "" || password == "" {
			return fmt.Errorf("sign-in needs -user and -pass")
		}
		creds, err := api.Login(ctx, username, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		self = creds.Person
		fmt.Printf("signed in as %s (id %d)\n", self.Username, self.ID)
	}

	if withID == 0 {
		return listChats(ctx, api)
	}

	counterpart, err := api.FindPerson(ctx, withID)
	if err != nil {
		return fmt.Errorf("find person %d: %w", withID, err)
	}

	return converse(ctx, api, self, counterpart)
}

// listChats prints the existing conversations and exits.
func listChats(ctx context.Context, api *client.API) error {
	chats, err := api.Chats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	if len(chats) == 0 {
		fmt.Println("no conversations yet; pass -with <person id> to start one")
		return nil
	}

	fmt.Println("conversations (pass -with <id> to open one):")
	for _, c := range chats {
		fmt.Printf("  %4d  %s %s (@%s)\n", c.ID, c.FirstName, c.LastName, c.Username)
	}
	return nil
}

func converse(ctx context.Context, api *client.API, self, counterpart store.PublicPerson) error {
	names := map[int64]string{
		self.ID:        "me",
		counterpart.ID: counterpart.FirstName,
	}

	// The socket needs its handlers at dial time, but the handlers forward to
	// the session, which needs the socket as its emitter. The session pointer
	// is assigned before Open joins the room, and no event arrives earlier.
	var session *client.Session

	handlers := client.SocketHandlers{
		OnNewMessage: func(m store.Message) {
			session.HandleNewMessage(m)
			if m.SenderID == counterpart.ID {
				fmt.Printf("\r[%d] %s: %s\n> ", m.ID, names[m.SenderID], m.Text)
			}
		},
		OnUpdatedMessage: func(m store.Message) {
			session.HandleUpdatedMessage(m)
			if m.SenderID == counterpart.ID {
				fmt.Printf("\r[%d] %s (edited): %s\n> ", m.ID, names[m.SenderID], m.Text)
			}
		},
		OnDeletedMessage: func(id int64) {
			session.HandleDeletedMessage(id)
			fmt.Printf("\r[%d] message deleted\n> ", id)
		},
		OnError: func(code int, message string) {
			fmt.Printf("\rserver error %d: %s\n> ", code, message)
		},
		OnDisconnect: func(err error) {
			fmt.Printf("\rdisconnected: %v\n", err)
			os.Exit(1)
		},
	}

	socket, err := client.DialSocket(api.BaseURL(), api.Token(), handlers)
	if err != nil {
		return err
	}
	defer socket.Close()

	session = client.NewSession(api, socket, self.ID, counterpart.ID)

	if err := session.Open(ctx); err != nil {
		return err
	}
	defer session.Close()

	fmt.Printf("conversation with %s %s; history:\n", counterpart.FirstName, counterpart.LastName)
	for _, m := range session.Messages() {
		fmt.Printf("[%d] %s: %s\n", m.ID, names[m.SenderID], m.Text)
	}
	fmt.Println(`type a message, "/edit <id>", "/delete <id>" or "/quit"`)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":

		case line == "/quit":
			return nil

		case strings.HasPrefix(line, "/edit "):
			id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/edit ")), 10, 64)
			if err != nil {
				fmt.Println("usage: /edit <id>")
				break
			}
			current, err := session.StartEdit(id)
			if err != nil {
				fmt.Printf("edit: %v\n", err)
				break
			}
			fmt.Printf("editing [%d] %q; next line replaces it\n", id, current)

		case strings.HasPrefix(line, "/delete "):
			id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/delete ")), 10, 64)
			if err != nil {
				fmt.Println("usage: /delete <id>")
				break
			}
			if err := session.Delete(ctx, id); err != nil {
				fmt.Printf("delete: %v\n", err)
			}

		default:
			if _, err := session.Send(ctx, line); err != nil {
				fmt.Printf("send: %v\n", err)
			}
		}

		fmt.Print("> ")
	}

	return scanner.Err()
}
