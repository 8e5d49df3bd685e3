package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/tools"
	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

func TestUnitRegistry(t *testing.T) {
	spec.Run(t, "Testing registry", testRegistry, spec.Report(report.Terminal{}))
}

func testRegistry(t *testing.T, when spec.G, it spec.S) {
	var (
		mockCtrl      *gomock.Controller
		mockTransport *MockTransport
	)

	it.Before(func() {
		RegisterTestingT(t)
		mockCtrl = gomock.NewController(t)
		mockTransport = NewMockTransport(mockCtrl)
	})

	it.After(func() {
		mockCtrl.Finish()
	})

	builtin := func(name string) tools.Tool {
		return &tools.FuncTool{
			ToolName:   name,
			ToolDesc:   name + " does things",
			ToolParams: map[string]any{"type": "object"},
			Fn: func(ctx context.Context, args map[string]any) (string, error) {
				return name + " ran", nil
			},
		}
	}

	when("Schemas()", func() {
		it("lists builtins in registration order", func() {
			registry := tools.NewRegistry()
			registry.Register(builtin("beta"))
			registry.Register(builtin("alpha"))

			schemas, err := registry.Schemas(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(schemas).To(HaveLen(2))
			Expect(schemas[0].Name).To(Equal("beta"))
			Expect(schemas[1].Name).To(Equal("alpha"))
		})

		it("appends transport tools, builtins shadowing by name", func() {
			mockTransport.EXPECT().Tools(gomock.Any()).Return([]types.ToolSchema{
				{Name: "alpha", Description: "remote alpha"},
				{Name: "remote_only", Description: "remote"},
			}, nil)

			registry := tools.NewRegistry(tools.WithTransport(mockTransport))
			registry.Register(builtin("alpha"))

			schemas, err := registry.Schemas(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(schemas).To(HaveLen(2))
			Expect(schemas[0].Name).To(Equal("alpha"))
			Expect(schemas[0].Description).To(Equal("alpha does things"))
			Expect(schemas[1].Name).To(Equal("remote_only"))
		})

		it("degrades to builtin-only when the transport listing fails", func() {
			mockTransport.EXPECT().Tools(gomock.Any()).Return(nil, errors.New("server down"))

			registry := tools.NewRegistry(tools.WithTransport(mockTransport))
			registry.Register(builtin("alpha"))

			schemas, err := registry.Schemas(context.Background())

			Expect(err).To(MatchError(ContainSubstring("server down")))
			Expect(schemas).To(HaveLen(1))
			Expect(schemas[0].Name).To(Equal("alpha"))
		})

		it("filters by the allow-list", func() {
			registry := tools.NewRegistry(tools.WithAllowedTools([]string{"alpha"}))
			registry.Register(builtin("alpha"))
			registry.Register(builtin("beta"))

			schemas, err := registry.Schemas(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(schemas).To(HaveLen(1))
			Expect(schemas[0].Name).To(Equal("alpha"))
		})
	})

	when("Dispatch()", func() {
		it("prefers the builtin over the transport", func() {
			registry := tools.NewRegistry(tools.WithTransport(mockTransport))
			registry.Register(builtin("alpha"))

			out, err := registry.Dispatch(context.Background(), types.ToolCall{ID: "c1", Name: "alpha"}, "conv")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("alpha ran"))
		})

		it("returns a typed error for disabled tools", func() {
			registry := tools.NewRegistry(tools.WithAllowedTools([]string{"alpha"}))
			registry.Register(builtin("beta"))

			_, err := registry.Dispatch(context.Background(), types.ToolCall{ID: "c1", Name: "beta"}, "conv")

			var disabled tools.DisabledToolError
			Expect(errors.As(err, &disabled)).To(BeTrue())
			Expect(disabled.Name).To(Equal("beta"))
		})
	})
}
