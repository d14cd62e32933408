package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/docqa/docqa/internal/audio"
	"github.com/docqa/docqa/internal/chatlog"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/docstore"
	"github.com/docqa/docqa/internal/logger"
	"github.com/docqa/docqa/internal/progress"
	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/internal/walker"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question answering session",
	Long: `Starts an interactive session over your documents. Type a question to
get an answer, or a slash command: /docs, /index <path>, /remove <name>,
/voice <wav>, /clear, /help, /quit. Conversations are kept in local
chat history.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatSession holds the state of one interactive run. The chat log
// session is created lazily from the first question.
type chatSession struct {
	cfg         *config.Config
	store       *docstore.Store
	engine      *rag.Engine
	transcriber audio.Transcriber
	log         *chatlog.Store
	session     *chatlog.Session
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := newEngine(cfg, store)
	if err != nil {
		return err
	}

	s := &chatSession{
		cfg:         cfg,
		store:       store,
		engine:      engine,
		transcriber: audio.NewTranscriber(cfg.Transcription),
		log:         chatlog.NewStore(store.DB()),
	}

	fmt.Println("docqa chat. Ask a question, or type /help for commands.")

	for {
		prompt := promptui.Prompt{Label: "you"}
		input, err := prompt.Run()
		if err != nil {
			// Ctrl-C or Ctrl-D ends the session.
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Println("bye")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if s.runSlash(ctx, input) {
				return nil
			}
			continue
		}

		s.ask(ctx, input)
	}
}

// runSlash executes one slash command, reporting whether the session
// should end.
func (s *chatSession) runSlash(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit", "/exit":
		fmt.Println("bye")
		return true
	case "/help":
		printChatHelp()
	case "/docs":
		s.listDocs(ctx)
	case "/index":
		if len(args) == 0 {
			fmt.Println("usage: /index <path|dir|glob>...")
			break
		}
		s.indexPaths(ctx, args)
	case "/remove":
		if len(args) == 0 {
			fmt.Println("usage: /remove <name>")
			break
		}
		s.removeDoc(ctx, args[0])
	case "/voice":
		if len(args) == 0 {
			fmt.Println("usage: /voice <wav-file>")
			break
		}
		s.voice(ctx, args[0])
	case "/clear":
		s.session = nil
		fmt.Println("Started a new conversation.")
	default:
		fmt.Printf("Unknown command %s. Type /help for commands.\n", command)
	}
	return false
}

// ask answers one question and records both turns in the chat log.
func (s *chatSession) ask(ctx context.Context, question string) {
	if err := s.ensureSession(ctx, question); err != nil {
		logger.Warn("chat history unavailable: %v", err)
	}

	answer, err := s.engine.Answer(ctx, question)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println()
	printAnswer(answer)
	fmt.Println()

	s.logTurn(ctx, question, answer)
}

func (s *chatSession) ensureSession(ctx context.Context, question string) error {
	if s.session != nil {
		return nil
	}
	session, err := s.log.CreateSession(ctx, chatlog.TitleFromQuestion(question))
	if err != nil {
		return err
	}
	s.session = session
	return nil
}

func (s *chatSession) logTurn(ctx context.Context, question string, answer *rag.Answer) {
	if s.session == nil {
		return
	}

	if _, err := s.log.AppendMessage(ctx, chatlog.Message{
		SessionID: s.session.ID,
		Role:      chatlog.RoleUser,
		Content:   question,
	}); err != nil {
		logger.Warn("recording question: %v", err)
		return
	}

	if _, err := s.log.AppendMessage(ctx, chatlog.Message{
		SessionID:  s.session.ID,
		Role:       chatlog.RoleAssistant,
		Content:    answer.Text,
		Sources:    answer.Sources,
		Confidence: answer.Confidence,
	}); err != nil {
		logger.Warn("recording answer: %v", err)
	}
}

func (s *chatSession) listDocs(ctx context.Context) {
	docs, err := s.store.List(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(docs) == 0 {
		fmt.Println("No documents indexed. Use /index <path> to add some.")
		return
	}
	for _, doc := range docs {
		fmt.Println(formatDocumentLine(doc))
	}
}

func (s *chatSession) indexPaths(ctx context.Context, args []string) {
	files, err := walker.Discover(args, walker.Config{
		Exclude:     s.cfg.Ingest.Exclude,
		MaxFileSize: s.cfg.Ingest.MaxFileSize,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(files) == 0 {
		fmt.Println("No document files found.")
		return
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}

	reporter := progress.NewReporter()
	reporter.Start(len(paths))
	done := 0
	docs, err := s.store.AddFiles(ctx, paths, nil, func(doc docstore.Document) {
		done++
		reporter.Update(done, doc.Name)
	})
	reporter.Finish()

	indexed := 0
	for _, doc := range docs {
		switch doc.Status {
		case docstore.StatusIndexed:
			indexed++
		case docstore.StatusError:
			fmt.Printf("  %s: %s\n", doc.Name, doc.ErrorMessage)
		}
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Printf("Indexed %d document(s).\n", indexed)
}

func (s *chatSession) removeDoc(ctx context.Context, name string) {
	removed, err := s.store.Remove(ctx, name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if removed {
		fmt.Printf("Removed %s.\n", name)
	} else {
		fmt.Printf("No document named %s.\n", name)
	}
}

// voice transcribes a recorded question and answers it.
func (s *chatSession) voice(ctx context.Context, path string) {
	if s.transcriber == nil {
		fmt.Println("Voice input is not configured. Set transcription.binary in the config.")
		return
	}

	audioData, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	text, err := s.transcriber.Transcribe(ctx, audioData)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if text == "" {
		fmt.Println("Could not make out any speech in the recording.")
		return
	}

	fmt.Printf("Heard: %s\n", text)
	s.ask(ctx, text)
}

func printChatHelp() {
	fmt.Println(`Commands:
  /docs             list indexed documents
  /index <path>...  add documents (files, directories or globs)
  /remove <name>    remove a document
  /voice <wav>      transcribe a recording and ask it
  /clear            start a new conversation
  /quit             leave the session`)
}
