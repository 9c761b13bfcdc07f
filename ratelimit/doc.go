// Package ratelimit limita as chamadas ao serviço de registro de documentos a no
// máximo N por janela fixa, bloqueando o excesso em vez de rejeitá-lo.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (validar, esperar admissão, enviar uma vez)
//   - infra: implementações concretas (janela fixa, token bucket, transporte HTTP,
//     semáforo, estatísticas, métricas)
//   - ratelimit (este pacote): Client para uso como biblioteca e Middleware HTTP
//     usado pelo gateway
//
// Uso como biblioteca:
//
//	c, err := ratelimit.NewClient(time.Second, 5)
//	if err != nil { ... }
//	defer c.Close()
//	err = c.CreateDocument(ctx, doc, signature)
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (header/XFF/IP) para estatísticas
//  2. Espera admissão no gate (bloqueia até a próxima janela se preciso)
//  3. Se a espera for abandonada, responde 503
//  4. Se admitido, chama o próximo handler (reverse proxy para o registro)
//
// A ordem de admissão entre chamadas bloqueadas não é FIFO.
package ratelimit
